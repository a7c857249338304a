// Package observability sets up the gateway's structured logging and
// tracing, grounded on the teacher's own slog setup in
// cmd/sentinel-gate/cmd/start.go, extended with an OpenTelemetry tracer
// provider this spec's correlator and HTTP layer use for span-level
// timing.
package observability

import (
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the gateway's base logger. Output always goes to
// stderr, since stdout is never used by this gateway (unlike the
// teacher's stdio-transport mode, this gateway's child owns stdout/stdin,
// not the gateway process itself) but the convention is kept for
// consistency with the teacher's own reasoning about which stream is
// safe to write free-form text to.
func NewLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level, defaulting to
// Info for unrecognized values, matching the teacher's own
// parseLogLevel.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
