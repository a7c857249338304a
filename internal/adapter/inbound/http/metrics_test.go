package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamgate/streamgate/internal/domain/session"
)

func TestMetricsMiddlewareRecordsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry := session.NewRegistry()
	m := NewMetrics(reg, registry)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	wrapped := m.Middleware(inner)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	if rec.Code != http.StatusTeapot {
		t.Fatalf("got status %d, want 418", rec.Code)
	}

	body := scrapeMetrics(t, reg, m, registry)
	if !strings.Contains(body, `streamgate_http_requests_total{method="GET",status="418"} 1`) {
		t.Fatalf("expected request counter in scrape output, got:\n%s", body)
	}
}

func TestMetricsRefreshSumsAcrossSessions(t *testing.T) {
	reg := prometheus.NewRegistry()
	registry := session.NewRegistry()
	m := NewMetrics(reg, registry)

	s, _ := registry.GetOrCreate("")
	s.RegisterPending("1", &session.PendingRequest{})

	body := scrapeMetrics(t, reg, m, registry)
	if !strings.Contains(body, "streamgate_pending_requests 1") {
		t.Fatalf("expected pending gauge to reflect the registered pending request, got:\n%s", body)
	}
	if !strings.Contains(body, "streamgate_sessions 1") {
		t.Fatalf("expected session gauge to reflect one live session, got:\n%s", body)
	}
}

func scrapeMetrics(t *testing.T, reg *prometheus.Registry, m *Metrics, registry *session.Registry) string {
	t.Helper()
	handler := MetricsHandler(reg, m, registry)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Body.String()
}
