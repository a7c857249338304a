package http

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestHealthHandlerReturnsOKBodyAndStaticHeaders(t *testing.T) {
	headers := map[string]string{"X-Service": "streamgate"}
	h := HealthHandler(headers, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("got body %q, want \"ok\"", rec.Body.String())
	}
	if rec.Header().Get("X-Service") != "streamgate" {
		t.Fatalf("expected static header to be set")
	}
}

func TestHealthHandlerAddsChildUptimeHeaderWhenAvailable(t *testing.T) {
	startedAt := time.Now().Add(-time.Hour)
	h := HealthHandler(nil, func() (time.Time, bool) { return startedAt, true })

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Child-Uptime") == "" {
		t.Fatalf("expected X-Child-Uptime header to be set")
	}
}

func TestHealthHandlerOmitsChildUptimeHeaderWhenUnavailable(t *testing.T) {
	h := HealthHandler(nil, func() (time.Time, bool) { return time.Time{}, false })

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("X-Child-Uptime") != "" {
		t.Fatalf("expected no X-Child-Uptime header when child has not started")
	}
}
