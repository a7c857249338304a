package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamgate/streamgate/internal/domain/session"
	"github.com/streamgate/streamgate/pkg/jsonrpc"
)

// ChildWriter is the one method the handler needs from the Child Process
// Supervisor: forward one newline-terminated JSON-RPC message to the
// child's stdin.
type ChildWriter interface {
	WriteLine(line []byte) error
}

// TimeoutArmer is the one method the handler needs from the Timeout
// Scheduler (C7): arm a one-shot timeout for a freshly registered pending
// request.
type TimeoutArmer interface {
	Arm(s *session.Session, key string, id jsonrpc.ID, mode session.ResponseMode, duration time.Duration) *time.Timer
}

// Handler implements the HTTP Request Router (C5): it dispatches
// OPTIONS/GET/POST/DELETE on the single multiplexing endpoint, per
// spec.md section 4.4.
type Handler struct {
	Registry      *session.Registry
	Child         ChildWriter
	Timeouts      TimeoutArmer
	Log           *slog.Logger
	SessionHeader string
	BatchTimeout  time.Duration
	BodyLimit     int64
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		h.handleOptions(w, r)
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		h.writeError(w, http.StatusMethodNotAllowed, jsonrpc.NewMethodNotAllowedError(r.Method))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, resp *jsonrpc.Response) {
	body, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// handleOptions applies the CORS headers middleware already set and
// returns 204, per spec.md section 4.4.
func (h *Handler) handleOptions(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleDelete ends every live response in the named session and removes
// it from the registry, per spec.md section 4.4.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(h.SessionHeader)
	if id == "" {
		h.writeError(w, http.StatusBadRequest, jsonrpc.NewMissingSessionError())
		return
	}
	s, ok := h.Registry.Get(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, jsonrpc.NewUnknownSessionError(id))
		return
	}
	s.EndAll()
	h.Registry.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleGet opens an SSE stream for the session, replaying history since
// Last-Event-ID if supplied, per spec.md section 4.4.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	s, _ := h.Registry.GetOrCreate(r.Header.Get(h.SessionHeader))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set(h.SessionHeader, s.ID)
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	handle := NewResponseHandle(w)
	h.writeConnectedFrame(handle, s.ID)
	h.replayIfRequested(r, s, handle)

	streamKey := uuid.NewString()
	s.RegisterResponseSlot(streamKey, session.SlotStream, handle, "")

	select {
	case <-r.Context().Done():
	case <-handle.Done():
	}
	s.RemoveResponseSlot(streamKey)
	handle.End()
}

func (h *Handler) writeConnectedFrame(handle *ResponseHandle, sessionID string) {
	payload, _ := json.Marshal(struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID})
	if err := handle.WriteSSE(0, "connected", payload); err != nil {
		h.Log.Warn("sse: connected frame failed", "error", err)
	}
}

// replayIfRequested honors Last-Event-ID as an index into the session's
// retained history, per spec.md section 4.4: the replayed frames are
// re-numbered N, N+1, ... starting at the supplied index, not at their
// original broadcast event ids.
func (h *Handler) replayIfRequested(r *http.Request, s *session.Session, handle *ResponseHandle) {
	raw := r.Header.Get("Last-Event-ID")
	if raw == "" {
		return
	}
	from, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.Log.Warn("sse: invalid Last-Event-ID header", "value", raw)
		return
	}
	entries := s.ReplayFrom(from)
	for i, entry := range entries {
		if err := handle.WriteSSE(from+int64(i), "message", entry.Data); err != nil {
			h.Log.Warn("sse: replay frame failed", "error", err)
			return
		}
	}
}

// handlePost parses the request body as a single JSON-RPC message,
// forwards it to the child, and replies per spec.md section 4.4: 204 for
// a notification, an SSE stream if the client asked for one via
// Accept: text/event-stream, or a blocking batch JSON reply otherwise.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	s, _ := h.Registry.GetOrCreate(r.Header.Get(h.SessionHeader))
	w.Header().Set(h.SessionHeader, s.ID)

	r.Body = http.MaxBytesReader(w, r.Body, h.BodyLimit)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, jsonrpc.NewParseErrorInvalidJSON())
			return
		}
		h.writeError(w, http.StatusBadRequest, jsonrpc.NewParseErrorInvalidJSON())
		return
	}

	env, err := jsonrpc.Decode(data)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, jsonrpc.NewParseErrorInvalidJSON())
		return
	}

	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')
	if err := h.Child.WriteLine(line); err != nil {
		h.Log.Error("post: failed to forward message to child", "error", err)
		h.writeError(w, http.StatusInternalServerError, jsonrpc.NewErrorResponse(env.ID, jsonrpc.CodeGatewayErr, "failed to forward to child"))
		return
	}

	if !env.HasID() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	key := jsonrpc.Key(env.ID)
	if wantsStream(r) {
		h.handlePostStream(w, r, s, env, key)
		return
	}
	h.handlePostBatch(w, r, s, env, key)
}

func wantsStream(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

func (h *Handler) handlePostStream(w http.ResponseWriter, r *http.Request, s *session.Session, env *jsonrpc.Envelope, key string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	handle := NewResponseHandle(w)
	streamKey := uuid.NewString()
	s.RegisterPending(key, &session.PendingRequest{ID: env.ID, Method: env.Method, Mode: session.ModeStream, ReceivedAt: time.Now()})
	s.RegisterResponseSlot(streamKey, session.SlotStream, handle, key)
	h.Timeouts.Arm(s, key, env.ID, session.ModeStream, h.BatchTimeout)

	select {
	case <-r.Context().Done():
	case <-handle.Done():
	}
	s.RemoveResponseSlot(streamKey)
	handle.End()
}

func (h *Handler) handlePostBatch(w http.ResponseWriter, r *http.Request, s *session.Session, env *jsonrpc.Envelope, key string) {
	handle := NewResponseHandle(w)
	s.RegisterPending(key, &session.PendingRequest{ID: env.ID, Method: env.Method, Mode: session.ModeBatch, ReceivedAt: time.Now()})
	s.RegisterResponseSlot(key, session.SlotPending, handle, "")
	h.Timeouts.Arm(s, key, env.ID, session.ModeBatch, h.BatchTimeout)

	select {
	case <-r.Context().Done():
		s.RemoveResponseSlot(key)
		handle.End()
	case <-handle.Done():
	}
}
