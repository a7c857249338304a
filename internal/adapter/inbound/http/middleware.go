package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/streamgate/streamgate/internal/ctxkey"
)

// RequestIDMiddleware mints a request id, enriches the base logger with
// it, and stores the enriched logger in the request context under
// ctxkey.LoggerKey, mirroring the teacher's own
// internal/adapter/inbound/http/middleware.go.
func RequestIDMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()
			logger := base.With("request_id", requestID)
			ctx := context.WithValue(r.Context(), ctxkey.LoggerKey{}, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFromContext returns the request-scoped logger stashed by
// RequestIDMiddleware, falling back to slog.Default() if none is present
// (e.g. in a unit test that calls a handler directly).
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// CORSConfig controls the permissive CORS policy spec.md section 4.4
// mandates for the single multiplexing endpoint.
type CORSConfig struct {
	AllowedOrigin string
}

const (
	corsAllowedMethods = "GET, POST, DELETE, OPTIONS"
	corsAllowedHeaders = "Content-Type, Accept, Authorization, x-api-key, Last-Event-ID"
	corsExposedHeaders = "Content-Type, Authorization, x-api-key"
)

// CORSMiddleware applies the exact header set spec.md section 4.4
// requires to every response on the endpoint, including the exposed
// session header, which is only known at construction time since its
// name is configurable.
func CORSMiddleware(cfg CORSConfig, sessionHeaderName string) func(http.Handler) http.Handler {
	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	exposed := corsExposedHeaders + ", " + sessionHeaderName
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsAllowedMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			h.Set("Access-Control-Expose-Headers", exposed)
			h.Set("Access-Control-Allow-Credentials", "true")
			next.ServeHTTP(w, r)
		})
	}
}

// Chain composes middleware in the order given, first listed runs
// outermost, matching the teacher's own middleware composition order in
// cmd/sentinel-gate/cmd/run.go.
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
