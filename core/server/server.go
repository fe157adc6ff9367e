// Package server exposes the webhook, health and metrics endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/hmbot/core/logger"
)

const component = "http"

// Webhook serves the platform handshake and event delivery.
type Webhook interface {
	Verify(w http.ResponseWriter, r *http.Request)
	Receive(w http.ResponseWriter, r *http.Request)
}

// Options configures the HTTP server.
type Options struct {
	Addr        string
	Path        string
	MetricsPath string
	Webhook     Webhook
	// Gatherer backs the metrics endpoint; nil disables it.
	Gatherer        prometheus.Gatherer
	ShutdownTimeout time.Duration
	// Ready reports dependency health for /healthz; nil means always ready.
	Ready func(ctx context.Context) error
}

// Server is the public HTTP surface of the bot.
type Server struct {
	opts    Options
	handler http.Handler
}

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Webhook == nil {
		return nil, errors.New("server: webhook handler is required")
	}
	if opts.Path == "" {
		opts.Path = "/api"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{opts: opts, handler: newRouter(opts)}, nil
}

func newRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withLogging(map[string]struct{}{"/healthz": {}, opts.MetricsPath: {}}))
	r.Use(withRecover)

	r.Get(opts.Path, opts.Webhook.Verify)
	r.Post(opts.Path, opts.Webhook.Receive)
	r.Get("/healthz", healthz(opts.Ready))
	if opts.Gatherer != nil && opts.MetricsPath != "" {
		r.Method(http.MethodGet, opts.MetricsPath, promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func healthz(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				logger.Warn(r.Context(), component, "health.fail", slog.String("err", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = io.WriteString(w, "unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on opts.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info(ctx, component, "listen",
		slog.String("addr", ln.Addr().String()),
		slog.String("path", s.opts.Path),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()
	start := time.Now()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	logger.Info(ctx, component, "stopped", slog.Duration("duration", logger.Took(start)))
	return nil
}
