package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/hmbot/core/logger"
)

// withLogging puts the chi request id and a scoped logger in the request
// context and logs one line per request. Probe and scrape paths log at debug.
func withLogging(quiet map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			rid := middleware.GetReqID(ctx)
			if rid == "" {
				rid = logger.NewRID()
			}
			ctx = logger.WithRID(ctx, rid)
			ctx = logger.WithLogger(ctx, logger.Component(component))

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			attrs := []slog.Attr{
				slog.String("status", statusLabel(status)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("http_code", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("remote", r.RemoteAddr),
				slog.Duration("duration", logger.Took(start)),
			}
			if _, ok := quiet[r.URL.Path]; ok {
				logger.Debug(ctx, component, "http.request", attrs...)
				return
			}
			logger.Info(ctx, component, "http.request", attrs...)
		})
	}
}

// withRecover turns a handler panic into a logged 500.
func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error(r.Context(), component, "panic",
					slog.Any("err", rec),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "error"
	case code >= 400:
		return "fail"
	}
	return "ok"
}
