package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	coreconfig "github.com/m3rciful/hmbot/core/config"
	coredatabase "github.com/m3rciful/hmbot/core/database"
	"github.com/m3rciful/hmbot/core/dedup"
	"github.com/m3rciful/hmbot/core/dialogue"
	"github.com/m3rciful/hmbot/core/inbound"
	"github.com/m3rciful/hmbot/core/leads"
	"github.com/m3rciful/hmbot/core/logger"
	"github.com/m3rciful/hmbot/core/metrics"
	"github.com/m3rciful/hmbot/core/notify"
	"github.com/m3rciful/hmbot/core/sender"
	"github.com/m3rciful/hmbot/core/server"
	"github.com/m3rciful/hmbot/core/session"
	"github.com/m3rciful/hmbot/core/whatsapp"
)

const component = "app"

// Options control the bootstrap pipeline. Zero hooks select the real
// implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
	// Transport replaces the Cloud API client.
	Transport sender.Transport
	// Notifier replaces the advisors alert built from config.
	Notifier notify.Notifier
}

// App is the wired bot.
type App struct {
	Config     *coreconfig.Config
	DB         *sqlx.DB
	Redis      *redis.Client
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Sessions   *session.Store
	Engine     *dialogue.Engine
	Dispatcher *sender.Dispatcher
	Pipeline   *inbound.Pipeline
	Server     *server.Server
}

// Run initializes the logger and infrastructure, then wires the dialogue
// pipeline behind the webhook server.
func Run(ctx context.Context, opts Options) (app *App, err error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}
	cfg := opts.Config

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	app = &App{Config: cfg, Registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.Metrics = metrics.New(app.Registry)

	repo, err := app.openLeads(ctx, opts)
	if err != nil {
		return nil, err
	}
	deduper, err := app.openDedup(ctx)
	if err != nil {
		return nil, err
	}
	notifier, err := buildNotifier(cfg.Notify, opts.Notifier)
	if err != nil {
		return nil, err
	}

	app.Sessions = session.NewStore()
	metrics.RegisterSessionsGauge(app.Registry, app.Sessions.Len)

	app.Engine, err = dialogue.NewEngine(app.Sessions, CatalogFromConfig(cfg.Content))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	app.Dispatcher = sender.NewDispatcher(sender.Options{
		QueueSize:    cfg.Dispatcher.QueueSize,
		Workers:      cfg.Dispatcher.Workers,
		MaxRetries:   cfg.Dispatcher.MaxRetries,
		RetryBackoff: time.Duration(cfg.Dispatcher.RetryBackoffMS) * time.Millisecond,
		MaxDuration:  time.Duration(cfg.Dispatcher.MaxDurationMS) * time.Millisecond,
	})

	transport := opts.Transport
	if transport == nil {
		transport = whatsapp.NewClient(whatsapp.ClientConfig{
			BaseURL:       cfg.WhatsApp.BaseURL,
			APIVersion:    cfg.WhatsApp.APIVersion,
			PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
			AccessToken:   cfg.WhatsApp.AccessToken,
		}, whatsapp.BuildHTTPClient(time.Duration(cfg.WhatsApp.TimeoutSeconds)*time.Second))
	}

	app.Pipeline, err = inbound.New(inbound.Options{
		Engine:   app.Engine,
		Replier:  sender.NewReplier(transport, app.Dispatcher, app.Metrics),
		Jobs:     app.Dispatcher,
		Deduper:  deduper,
		Limiter:  inbound.NewRateLimiter(time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond),
		Leads:    repo,
		Notifier: notifier,
		Recorder: app.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	webhook := whatsapp.NewWebhookHandler(whatsapp.WebhookOptions{
		VerifyToken: cfg.WhatsApp.VerifyToken,
		AppSecret:   cfg.WhatsApp.AppSecret,
		Handler:     app.Pipeline,
		Recorder:    app.Metrics,
	})
	app.Server, err = server.New(server.Options{
		Addr:            cfg.Server.Addr(),
		Path:            cfg.Server.Path,
		MetricsPath:     cfg.Server.MetricsPath,
		Webhook:         webhook,
		Gatherer:        app.Registry,
		ShutdownTimeout: cfg.Server.ShutdownTimeout(),
		Ready:           app.Ready,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	logger.Info(ctx, component, "wired",
		slog.Bool("database", app.DB != nil),
		slog.Bool("redis", app.Redis != nil),
		slog.Bool("notify", cfg.Notify.Enabled() || opts.Notifier != nil),
		slog.Bool("signature_check", cfg.WhatsApp.AppSecret != ""),
		slog.Int("rate_limit_ms", cfg.RateLimit.IntervalMS),
	)
	return app, nil
}

func (a *App) openLeads(ctx context.Context, opts Options) (leads.Repository, error) {
	if !a.Config.Database.Enabled() {
		return leads.NewMemoryRepository(), nil
	}
	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, a.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	a.DB = db

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, a.Config.Database); err != nil {
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}
	return leads.NewPostgresRepository(db), nil
}

func (a *App) openDedup(ctx context.Context) (dedup.Deduper, error) {
	rc := a.Config.Redis
	if rc.Addr == "" {
		return dedup.NewMemory(rc.DedupTTL()), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bootstrap: redis ping %s: %w", rc.Addr, err)
	}
	a.Redis = client
	return dedup.NewRedis(client, rc.DedupTTL()), nil
}

func buildNotifier(cfg coreconfig.NotifyConfig, override notify.Notifier) (notify.Notifier, error) {
	if override != nil {
		return override, nil
	}
	if !cfg.Enabled() {
		return notify.Noop{}, nil
	}
	n, err := notify.NewTelegram(notify.TelegramOptions{Token: cfg.TelegramToken, ChatID: cfg.TelegramChatID})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return n, nil
}

// CatalogFromConfig applies configured link overrides to the default content.
func CatalogFromConfig(c coreconfig.ContentConfig) dialogue.Catalog {
	cat := dialogue.DefaultCatalog()
	if c.DocumentURL != "" {
		cat.DocumentURL = c.DocumentURL
	}
	if c.DocumentCaption != "" {
		cat.DocumentCaption = c.DocumentCaption
	}
	if c.AudioURL != "" {
		cat.AudioURL = c.AudioURL
	}
	if c.VideoURL != "" {
		cat.VideoURL = c.VideoURL
	}
	if c.Website != "" {
		cat.Website = c.Website
	}
	return cat
}

// Ready pings the optional backing stores.
func (a *App) Ready(ctx context.Context) error {
	var errs []error
	if a.DB != nil {
		if err := a.DB.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases infrastructure. The dispatcher is closed first so queued
// lead saves still reach the database.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.Dispatcher != nil {
		a.Dispatcher.Close()
	}
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
