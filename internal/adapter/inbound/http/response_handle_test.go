package http

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteJSONEndsHandle(t *testing.T) {
	rec := httptest.NewRecorder()
	h := NewResponseHandle(rec)

	if err := h.WriteJSON(200, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !h.Ended() {
		t.Fatalf("expected handle to be ended after WriteJSON")
	}
	if rec.Code != 200 {
		t.Fatalf("got status %d, want 200", rec.Code)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Fatalf("got body %q", rec.Body.String())
	}
}

func TestWriteJSONAfterEndIsNoOp(t *testing.T) {
	rec := httptest.NewRecorder()
	h := NewResponseHandle(rec)
	_ = h.WriteJSON(200, []byte(`{"first":true}`))

	if err := h.WriteJSON(500, []byte(`{"second":true}`)); err != nil {
		t.Fatalf("second WriteJSON should be a silent no-op, got error: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("second write must not have changed status, got %d", rec.Code)
	}
	if rec.Body.String() != `{"first":true}` {
		t.Fatalf("second write must not have appended to body, got %q", rec.Body.String())
	}
}

func TestWriteSSEAfterEndIsNoOp(t *testing.T) {
	rec := httptest.NewRecorder()
	h := NewResponseHandle(rec)
	h.End()

	if err := h.WriteSSE(1, "message", []byte(`{}`)); err != nil {
		t.Fatalf("WriteSSE after End should be a silent no-op, got error: %v", err)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected no bytes written after End, got %q", rec.Body.String())
	}
}

func TestWriteSSEConnectedFrameHasNoIDLine(t *testing.T) {
	rec := httptest.NewRecorder()
	h := NewResponseHandle(rec)

	if err := h.WriteSSE(0, "connected", []byte(`{"sessionId":"abc"}`)); err != nil {
		t.Fatalf("WriteSSE: %v", err)
	}
	got := rec.Body.String()
	if !strings.HasPrefix(got, "event: connected\n") {
		t.Fatalf("expected connected frame to start with event line, got %q", got)
	}
	if strings.Contains(got, "id:") {
		t.Fatalf("connected frame must not carry an id line, got %q", got)
	}
}

func TestWriteSSEMessageFrameCarriesID(t *testing.T) {
	rec := httptest.NewRecorder()
	h := NewResponseHandle(rec)

	if err := h.WriteSSE(5, "message", []byte(`{"x":1}`)); err != nil {
		t.Fatalf("WriteSSE: %v", err)
	}
	got := rec.Body.String()
	want := "id: 5\ndata: {\"x\":1}\n\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteSSEDoesNotEndHandle(t *testing.T) {
	rec := httptest.NewRecorder()
	h := NewResponseHandle(rec)

	_ = h.WriteSSE(1, "message", []byte(`{}`))
	if h.Ended() {
		t.Fatalf("WriteSSE must not end the handle")
	}
	_ = h.WriteSSE(2, "message", []byte(`{}`))
	if rec.Body.Len() == 0 {
		t.Fatalf("expected a second frame to be written")
	}
}

func TestEndIsIdempotent(t *testing.T) {
	rec := httptest.NewRecorder()
	h := NewResponseHandle(rec)
	h.End()
	h.End()
	select {
	case <-h.Done():
	default:
		t.Fatalf("expected Done() to be closed")
	}
}
