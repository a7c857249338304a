package http

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamgate/streamgate/internal/domain/session"
)

// Metrics is ambient observability additive to spec.md: a /metrics
// surface reporting session count, open streams, pending requests, and
// child restarts, grounded on the teacher's
// internal/adapter/inbound/http/metrics.go promauto.With(reg).New*
// pattern.
type Metrics struct {
	sessionCount  prometheus.GaugeFunc
	streamCount   prometheus.Gauge
	pendingCount  prometheus.Gauge
	childRestarts prometheus.Counter
	requests      *prometheus.CounterVec
}

// NewMetrics registers the gateway's gauges/counters against reg.
// sessionCount is wired directly to registry.Count() as a GaugeFunc since
// it always reflects live state; streamCount and pendingCount are plain
// Gauges updated by Refresh, because those counts require summing across
// every session's own mutex-guarded maps rather than a single O(1) read.
func NewMetrics(reg prometheus.Registerer, registry *session.Registry) *Metrics {
	m := &Metrics{}
	m.sessionCount = promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "streamgate_sessions",
		Help: "Number of live gateway sessions.",
	}, func() float64 { return float64(registry.Count()) })
	m.streamCount = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "streamgate_open_streams",
		Help: "Number of currently open SSE response slots across all sessions.",
	})
	m.pendingCount = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "streamgate_pending_requests",
		Help: "Number of requests awaiting a child reply across all sessions.",
	})
	m.childRestarts = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "streamgate_child_restarts_total",
		Help: "Number of times the child process has been (re)started.",
	})
	m.requests = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_http_requests_total",
		Help: "Total HTTP requests to the multiplexing endpoint by method and status.",
	}, []string{"method", "status"})
	return m
}

// Refresh recomputes the stream/pending gauges by summing across every
// registered session. Called once per /metrics scrape rather than
// incrementally, since those figures live inside per-session state.
func (m *Metrics) Refresh(registry *session.Registry) {
	var streams, pending int
	for _, s := range registry.Snapshot() {
		streams += s.StreamCount()
		pending += s.PendingCount()
	}
	m.streamCount.Set(float64(streams))
	m.pendingCount.Set(float64(pending))
}

// ChildRestarted increments the restart counter. Nothing in this module
// calls it: the child is never relaunched, so the counter stays at zero.
func (m *Metrics) ChildRestarted() {
	m.childRestarts.Inc()
}

// Middleware records a request counter keyed by method and final status,
// matching the teacher's metrics_middleware.go statusRecorder pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.requests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush passes through so SSE streams wrapped by this recorder still
// flush correctly, matching the teacher's metrics_middleware.go.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// MetricsHandler wraps promhttp's handler with a Refresh call so every
// scrape reflects current session state.
func MetricsHandler(reg *prometheus.Registry, m *Metrics, registry *session.Registry) http.Handler {
	inner := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Refresh(registry)
		inner.ServeHTTP(w, r)
	})
}
