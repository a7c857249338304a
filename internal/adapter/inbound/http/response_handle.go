// Package http implements the HTTP Request Router (C5), SSE Emitter (C8),
// and Health Surface (C9) described in spec.md sections 4.4 and 4.6-4.7,
// adapting the teacher's internal/adapter/inbound/http package layout to
// this gateway's single multiplexing endpoint.
package http

import (
	"bytes"
	"fmt"
	"net/http"
	"sync"
)

// ResponseHandle adapts a single net/http response to the
// session.ResponseHandle port: a one-shot JSON body write, or a sequence
// of SSE frames, whichever the caller ends up using. Exactly one of
// WriteJSON or one-or-more WriteSSE calls happens on any given handle;
// which one is determined by the HTTP handler, not by this type.
type ResponseHandle struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	ended   bool
	done    chan struct{}
}

// NewResponseHandle wraps w. If w does not implement http.Flusher, SSE
// frames are still written but never explicitly flushed (net/http
// generally flushes on its own buffering boundary in that case).
func NewResponseHandle(w http.ResponseWriter) *ResponseHandle {
	f, _ := w.(http.Flusher)
	return &ResponseHandle{w: w, flusher: f, done: make(chan struct{})}
}

// WriteJSON writes a one-shot JSON body and ends the response. A write
// after the handle has already ended is a silent no-op: the
// "writableEnded guard is load-bearing" rule from spec.md section 4.6
// means a second writer must never observe or cause a panic from writing
// to an already-completed response.
func (h *ResponseHandle) WriteJSON(status int, body []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ended {
		return nil
	}
	h.w.Header().Set("Content-Type", "application/json")
	h.w.WriteHeader(status)
	_, err := h.w.Write(body)
	h.closeLocked()
	if err != nil {
		return fmt.Errorf("response: write json body: %w", err)
	}
	return nil
}

// WriteSSE writes one event/data frame, per spec.md section 6's wire
// format. event "connected" is the synthetic prologue frame: it carries
// no id line. Every other frame carries "id: <eventID>" and no event
// line, matching spec.md's literal wire format (only the prologue uses
// "event:"). WriteSSE never ends the handle; only End or WriteJSON does.
func (h *ResponseHandle) WriteSSE(eventID int64, event string, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ended {
		return nil
	}
	var buf bytes.Buffer
	switch event {
	case "connected":
		buf.WriteString("event: connected\n")
	default:
		fmt.Fprintf(&buf, "id: %d\n", eventID)
	}
	buf.WriteString("data: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	_, err := h.w.Write(buf.Bytes())
	if h.flusher != nil {
		h.flusher.Flush()
	}
	if err != nil {
		return fmt.Errorf("response: write sse frame: %w", err)
	}
	return nil
}

// End marks the handle as finished without writing anything further, used
// for DELETE tearing down open streams and for disconnect cleanup.
func (h *ResponseHandle) End() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeLocked()
}

func (h *ResponseHandle) closeLocked() {
	if h.ended {
		return
	}
	h.ended = true
	close(h.done)
}

// Ended reports whether the handle has already been written to or ended.
func (h *ResponseHandle) Ended() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ended
}

// Done returns a channel closed when the handle ends, so a handler
// goroutine can select on it alongside the request context.
func (h *ResponseHandle) Done() <-chan struct{} {
	return h.done
}
