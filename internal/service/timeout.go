// Package service orchestrates the domain components spec.md describes
// into the running gateway: the Timeout Scheduler (C7) here, and the
// top-level GatewayService in gateway_service.go.
package service

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/streamgate/streamgate/internal/domain/session"
	"github.com/streamgate/streamgate/pkg/jsonrpc"
)

// TimeoutScheduler is the Timeout Scheduler (C7, spec.md 4.6). It arms a
// one-shot timer per pending request; if the timer fires before a reply
// or a disconnect has already claimed the entry, it synthesizes the
// timeout error and writes it through whatever handle session.TryTimeout
// hands back — a handle that is, by construction, not yet ended.
type TimeoutScheduler struct {
	log *slog.Logger
}

// NewTimeoutScheduler builds a scheduler that logs through log.
func NewTimeoutScheduler(log *slog.Logger) *TimeoutScheduler {
	return &TimeoutScheduler{log: log}
}

// Arm starts a one-shot timer for duration against key in s. On fire, if
// key is still pending, it writes the 504 timeout body (batch mode) or
// one SSE error frame followed by ending the stream (stream mode). The
// returned timer can be stopped early by the caller once a reply arrives,
// though letting it fire harmlessly on an already-claimed key is also
// correct: TryTimeout finding nothing is the expected steady state.
func (t *TimeoutScheduler) Arm(s *session.Session, key string, id jsonrpc.ID, mode session.ResponseMode, duration time.Duration) *time.Timer {
	return time.AfterFunc(duration, func() {
		handle, ok := s.TryTimeout(key)
		if !ok || handle == nil {
			return
		}

		body, err := json.Marshal(jsonrpc.NewRequestTimeoutError(id))
		if err != nil {
			t.log.Error("timeout: marshal error body failed", "key", key, "error", err)
			return
		}

		switch mode {
		case session.ModeStream:
			eventID := s.NextEventID()
			if err := handle.WriteSSE(eventID, "message", body); err != nil {
				t.log.Warn("timeout: sse write failed", "key", key, "error", err)
			}
			handle.End()
		default:
			if err := handle.WriteJSON(504, body); err != nil {
				t.log.Warn("timeout: json write failed", "key", key, "error", err)
			}
		}
		t.log.Info("request timeout", "key", key, "mode", mode)
	})
}
