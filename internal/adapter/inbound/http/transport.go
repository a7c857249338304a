package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/streamgate/streamgate/internal/domain/session"
	"github.com/streamgate/streamgate/internal/observability"
)

const defaultBodyLimit = 4 * 1024 * 1024 // 4 MiB, per spec.md section 4.4

// Transport owns the gateway's single HTTP listener, the endpoint mux,
// and the Prometheus registry, following the teacher's functional-options
// HTTPTransport shape in internal/adapter/inbound/http/transport.go.
type Transport struct {
	addr          string
	endpointPath  string
	sessionHeader string
	allowedOrigin string
	batchTimeout  time.Duration
	bodyLimit     int64
	healthPaths   map[string]map[string]string
	childUptime   func() (time.Time, bool)
	log           *slog.Logger

	registry *session.Registry
	child    ChildWriter
	timeouts TimeoutArmer

	registerer *prometheus.Registry
	metrics    *Metrics
	server     *http.Server
}

// Option configures a Transport.
type Option func(*Transport)

func WithAddr(addr string) Option { return func(t *Transport) { t.addr = addr } }

func WithEndpointPath(path string) Option { return func(t *Transport) { t.endpointPath = path } }

func WithSessionHeader(name string) Option { return func(t *Transport) { t.sessionHeader = name } }

func WithAllowedOrigin(origin string) Option { return func(t *Transport) { t.allowedOrigin = origin } }

func WithBatchTimeout(d time.Duration) Option { return func(t *Transport) { t.batchTimeout = d } }

func WithBodyLimit(n int64) Option { return func(t *Transport) { t.bodyLimit = n } }

func WithHealthPath(path string, headers map[string]string) Option {
	return func(t *Transport) { t.healthPaths[path] = headers }
}

func WithLogger(log *slog.Logger) Option { return func(t *Transport) { t.log = log } }

// WithChildUptime wires the health surface's additive X-Child-Uptime
// header to the supervisor's own StartedAt.
func WithChildUptime(fn func() (time.Time, bool)) Option {
	return func(t *Transport) { t.childUptime = fn }
}

// NewTransport builds the HTTP Request Router (C5) over registry and
// child, applying options with teacher-style defaults for anything
// unset.
func NewTransport(registry *session.Registry, child ChildWriter, timeouts TimeoutArmer, opts ...Option) *Transport {
	t := &Transport{
		addr:          ":8080",
		endpointPath:  "/mcp",
		sessionHeader: "Mcp-Session-Id",
		allowedOrigin: "*",
		batchTimeout:  30 * time.Second,
		bodyLimit:     defaultBodyLimit,
		healthPaths:   make(map[string]map[string]string),
		log:           slog.Default(),
		registry:      registry,
		child:         child,
		timeouts:      timeouts,
		registerer:    prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.registerer.MustRegister(collectors.NewGoCollector())
	t.registerer.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	t.metrics = NewMetrics(t.registerer, registry)
	return t
}

// Metrics returns the transport's metrics recorder, for components
// outside the HTTP layer that need to record against the same registry.
func (t *Transport) Metrics() *Metrics {
	return t.metrics
}

func (t *Transport) mux() http.Handler {
	handler := &Handler{
		Registry:      t.registry,
		Child:         t.child,
		Timeouts:      t.timeouts,
		Log:           t.log,
		SessionHeader: t.sessionHeader,
		BatchTimeout:  t.batchTimeout,
		BodyLimit:     t.bodyLimit,
	}

	mux := http.NewServeMux()
	endpointChain := Chain(handler,
		RequestIDMiddleware(t.log),
		CORSMiddleware(CORSConfig{AllowedOrigin: t.allowedOrigin}, t.sessionHeader),
		t.metrics.Middleware,
		observability.TracingMiddleware,
	)
	mux.Handle(t.endpointPath, endpointChain)

	for path, headers := range t.healthPaths {
		mux.Handle(path, HealthHandler(headers, t.childUptime))
	}

	mux.Handle("/metrics", MetricsHandler(t.registerer, t.metrics, t.registry))

	return mux
}

// Start begins listening and serving in a background goroutine, matching
// the teacher's HTTPTransport.Start/Shutdown split.
func (t *Transport) Start() error {
	t.server = &http.Server{
		Addr:    t.addr,
		Handler: t.mux(),
	}
	errCh := make(chan error, 1)
	go func() {
		if err := t.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("http transport: listen: %w", err)
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Shutdown gracefully stops the listener.
func (t *Transport) Shutdown(ctx context.Context) error {
	if t.server == nil {
		return nil
	}
	return t.server.Shutdown(ctx)
}
