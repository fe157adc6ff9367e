package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/hmbot/core/bootstrap"
	coreconfig "github.com/m3rciful/hmbot/core/config"
	"github.com/m3rciful/hmbot/core/logger"
)

const component = "app"

// Options describe how to load configuration, bootstrap the app and serve it.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (*coreconfig.Config, error)
	Bootstrap  func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.App, error)

	ShutdownLogger func() error
	// StatsInterval sets how often runtime counters are logged; zero selects one minute.
	StatsInterval time.Duration
	// Context is the parent of the signal context; nil selects Background.
	Context context.Context
}

// Run loads configuration, bootstraps the bot and serves the webhook until
// SIGINT or SIGTERM. On stop it drains in-flight messages and queued replies
// before flushing logs.
func Run(opts Options) error {
	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = coreconfig.Load
	}
	boot := opts.Bootstrap
	if boot == nil {
		boot = func(ctx context.Context, cfg *coreconfig.Config) (*bootstrap.App, error) {
			return bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
		}
	}

	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	cfgPath := os.Getenv(env)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()
	app, err := boot(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	logger.Info(ctx, component, "ready",
		slog.String("addr", cfg.Server.Addr()),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Server.Run(gctx)
	})
	g.Go(func() error {
		logStats(gctx, app, opts.StatsInterval)
		return nil
	})
	runErr := g.Wait()

	logger.Info(context.Background(), component, "shutdown")
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := app.Pipeline.Shutdown(drainCtx); err != nil {
		logger.Warn(drainCtx, component, "drain.timeout", slog.String("err", err.Error()))
	}
	if err := app.Close(); err != nil {
		logger.Warn(drainCtx, component, "close.fail", slog.String("err", err.Error()))
	}
	logger.Info(drainCtx, component, "stopped",
		slog.Uint64("dispatch_errors", app.Dispatcher.ErrorCount()),
		slog.Duration("uptime", logger.RoundMS(time.Since(startedAt))),
	)
	return runErr
}

func logStats(ctx context.Context, app *bootstrap.App, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Debug(ctx, component, "stats",
				slog.Int("sessions", app.Sessions.Len()),
				slog.Uint64("dispatch_errors", app.Dispatcher.ErrorCount()),
				slog.Uint64("log_dropped", logger.DroppedLines()),
			)
		}
	}
}
