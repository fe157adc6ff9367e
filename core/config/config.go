package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// WhatsAppConfig holds WhatsApp Cloud API credentials and endpoints.
type WhatsAppConfig struct {
	AccessToken   string `yaml:"access_token" envconfig:"ACCESS_TOKEN"`
	PhoneNumberID string `yaml:"phone_number_id" envconfig:"PHONE_NUMBER_ID"`
	VerifyToken   string `yaml:"verify_token" envconfig:"VERIFY_TOKEN"`
	// AppSecret enables X-Hub-Signature-256 verification when set.
	AppSecret      string `yaml:"app_secret" envconfig:"APP_SECRET"`
	APIVersion     string `yaml:"api_version" envconfig:"GRAPH_API_VERSION"`
	BaseURL        string `yaml:"base_url" envconfig:"GRAPH_BASE_URL"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"GRAPH_TIMEOUT_SECONDS"`
}

// ServerConfig specifies the webhook HTTP listener.
type ServerConfig struct {
	Listen string `yaml:"listen" envconfig:"LISTEN"`
	Port   int    `yaml:"port" envconfig:"PORT"`
	// Path is where Meta delivers verification and events.
	Path                   string `yaml:"path" envconfig:"WEBHOOK_PATH"`
	MetricsPath            string `yaml:"metrics_path" envconfig:"METRICS_PATH"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds" envconfig:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Listen, s.Port)
}

// ShutdownTimeout returns the graceful shutdown budget.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutSeconds) * time.Second
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	File        string `yaml:"file" envconfig:"LOG_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig holds the per-sender minimum interval between processed messages.
// Zero disables limiting.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
}

// DispatcherConfig tunes the outbound worker pool.
type DispatcherConfig struct {
	QueueSize      int `yaml:"queue_size" envconfig:"DISPATCH_QUEUE_SIZE"`
	Workers        int `yaml:"workers" envconfig:"DISPATCH_WORKERS"`
	MaxRetries     int `yaml:"max_retries" envconfig:"DISPATCH_MAX_RETRIES"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" envconfig:"DISPATCH_RETRY_BACKOFF_MS"`
	MaxDurationMS  int `yaml:"max_duration_ms" envconfig:"DISPATCH_MAX_DURATION_MS"`
}

// DatabaseConfig holds the optional Postgres store for completed requests.
// An empty Host disables it.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

// RedisConfig holds the optional Redis backend for webhook deduplication.
// An empty Addr selects the in-memory backend.
type RedisConfig struct {
	Addr            string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password        string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB              int    `yaml:"db" envconfig:"REDIS_DB"`
	DedupTTLSeconds int    `yaml:"dedup_ttl_seconds" envconfig:"DEDUP_TTL_SECONDS"`
}

// DedupTTL returns how long a message id is remembered.
func (r RedisConfig) DedupTTL() time.Duration {
	return time.Duration(r.DedupTTLSeconds) * time.Second
}

// NotifyConfig enables Telegram alerts to advisors on completed requests.
type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token" envconfig:"NOTIFY_TELEGRAM_TOKEN"`
	TelegramChatID int64  `yaml:"telegram_chat_id" envconfig:"NOTIFY_TELEGRAM_CHAT_ID"`
}

// Enabled reports whether advisor alerts are configured.
func (n NotifyConfig) Enabled() bool {
	return strings.TrimSpace(n.TelegramToken) != "" && n.TelegramChatID != 0
}

// ContentConfig overrides media links of the canned catalog.
type ContentConfig struct {
	DocumentURL     string `yaml:"document_url" envconfig:"CONTENT_DOCUMENT_URL"`
	DocumentCaption string `yaml:"document_caption"`
	AudioURL        string `yaml:"audio_url" envconfig:"CONTENT_AUDIO_URL"`
	VideoURL        string `yaml:"video_url" envconfig:"CONTENT_VIDEO_URL"`
	Website         string `yaml:"website"`
}

// Config aggregates the application configuration.
type Config struct {
	WhatsApp   WhatsAppConfig   `yaml:"whatsapp"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Notify     NotifyConfig     `yaml:"notify"`
	Content    ContentConfig    `yaml:"content"`
}

const (
	defaultAPIVersion = "v22.0"
	defaultBaseURL    = "https://graph.facebook.com"
	defaultPort       = 3000
	defaultPath       = "/api"
	defaultDedupTTL   = 24 * 60 * 60
)

// Load reads configuration from a YAML file and environment variables.
// A .env file in the working directory is loaded first when present.
// A missing YAML file is not an error: environment variables alone may
// configure the bot.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	wa := &cfg.WhatsApp
	if strings.TrimSpace(wa.AccessToken) == "" {
		return fmt.Errorf("whatsapp.access_token is required")
	}
	if strings.TrimSpace(wa.PhoneNumberID) == "" {
		return fmt.Errorf("whatsapp.phone_number_id is required")
	}
	if strings.TrimSpace(wa.VerifyToken) == "" {
		return fmt.Errorf("whatsapp.verify_token is required")
	}
	if wa.APIVersion == "" {
		wa.APIVersion = defaultAPIVersion
	}
	if !strings.HasPrefix(wa.APIVersion, "v") {
		wa.APIVersion = "v" + wa.APIVersion
	}
	if wa.BaseURL == "" {
		wa.BaseURL = defaultBaseURL
	}
	wa.BaseURL = strings.TrimRight(wa.BaseURL, "/")
	if wa.TimeoutSeconds <= 0 {
		wa.TimeoutSeconds = 10
	}

	srv := &cfg.Server
	if srv.Port == 0 {
		srv.Port = defaultPort
	}
	if srv.Port < 0 || srv.Port > 65535 {
		return fmt.Errorf("server.port must be within 1..65535, got %d", srv.Port)
	}
	if srv.Path == "" {
		srv.Path = defaultPath
	}
	if !strings.HasPrefix(srv.Path, "/") {
		srv.Path = "/" + srv.Path
	}
	if srv.MetricsPath == "" {
		srv.MetricsPath = "/metrics"
	}
	if srv.Path == srv.MetricsPath {
		return fmt.Errorf("server.path and server.metrics_path must differ")
	}
	if srv.ShutdownTimeoutSeconds <= 0 {
		srv.ShutdownTimeoutSeconds = 10
	}

	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}
	if cfg.Dispatcher.MaxRetries < 0 {
		return fmt.Errorf("dispatcher.max_retries must be >= 0")
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
		if cfg.Database.MigrationsDir == "" {
			cfg.Database.MigrationsDir = "migrations"
		}
		if cfg.Database.Name == "" {
			return fmt.Errorf("database.name is required when database.host is set")
		}
	}

	if cfg.Redis.DedupTTLSeconds <= 0 {
		cfg.Redis.DedupTTLSeconds = defaultDedupTTL
	}

	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID == 0 {
		return fmt.Errorf("notify.telegram_chat_id is required when notify.telegram_token is set")
	}
	return nil
}
