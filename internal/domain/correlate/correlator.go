// Package correlate implements the Outbound Correlator (C6) described in
// spec.md section 4.5: for each complete JSON line the child writes to
// its stdout, find the session(s) it belongs to and deliver it either as
// a direct reply to a waiting POST or as a broadcast SSE event.
package correlate

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/streamgate/streamgate/internal/domain/session"
	"github.com/streamgate/streamgate/internal/observability"
	"github.com/streamgate/streamgate/pkg/jsonrpc"
)

// Correlator dispatches one child stdout line at a time across every
// registered session. The child's stdout is a single ordered stream with
// no session addressing of its own; per spec.md 4.5's design rationale,
// the correlator searches every session and relies on request-id
// uniqueness within the subset of ids currently in flight.
type Correlator struct {
	registry *session.Registry
	log      *slog.Logger
}

// New builds a Correlator over registry.
func New(registry *session.Registry, log *slog.Logger) *Correlator {
	return &Correlator{registry: registry, log: log}
}

// Dispatch processes one complete, already-JSON-valid line from the
// child's stdout.
func (c *Correlator) Dispatch(line []byte) {
	_, span := observability.StartSpan(context.Background(), "correlator.dispatch",
		attribute.Int("line.bytes", len(line)),
	)
	defer span.End()

	env, err := jsonrpc.Decode(line)
	if err != nil {
		c.log.Error("correlator: could not decode child line", "error", err)
		return
	}

	if env.HasID() {
		span.SetAttributes(attribute.String("correlator.kind", "reply"))
		c.dispatchReply(env)
		return
	}
	span.SetAttributes(attribute.String("correlator.kind", "notification"))
	c.dispatchNotification(env)
}

func (c *Correlator) dispatchReply(env *jsonrpc.Envelope) {
	key := jsonrpc.Key(env.ID)
	payload := buildResponseEnvelope(env)

	for _, s := range c.registry.Snapshot() {
		if handle, ok := s.ClaimDirectReply(key); ok {
			if err := handle.WriteJSON(200, payload); err != nil {
				c.log.Warn("correlator: direct reply write failed", "session", s.ID, "error", err)
			}
			continue
		}

		pr, ok := s.ClaimPending(key)
		if !ok {
			// This session never originated request key; do nothing for it.
			continue
		}

		if pr.Mode == session.ModeStream {
			c.broadcast(s, "message", payload)
			continue
		}

		handle, ok := s.ClaimAnyLive()
		if !ok {
			c.log.Warn("correlator: no live response to deliver late batch reply", "session", s.ID, "key", key)
			continue
		}
		if err := handle.WriteJSON(200, payload); err != nil {
			c.log.Warn("correlator: fallback reply write failed", "session", s.ID, "error", err)
		}
	}
}

func (c *Correlator) dispatchNotification(env *jsonrpc.Envelope) {
	payload := buildNotificationEnvelope(env)
	for _, s := range c.registry.Snapshot() {
		c.broadcast(s, "message", payload)
	}
}

// broadcast appends payload to the session's history exactly once,
// assigning it the next lastEventId, then writes it as an SSE frame to
// every currently live response in the session.
func (c *Correlator) broadcast(s *session.Session, event string, payload []byte) {
	eventID := s.AppendHistory(payload)
	for _, entry := range s.SnapshotResponseSlots() {
		if entry.Slot.Handle.Ended() {
			continue
		}
		if err := entry.Slot.Handle.WriteSSE(eventID, event, payload); err != nil {
			c.log.Warn("correlator: broadcast write failed", "session", s.ID, "key", entry.Key, "error", err)
		}
	}
}

// buildResponseEnvelope builds V per spec.md 4.5: jsonrpc, result
// (defaulting to null), error (omitted entirely when absent), then id,
// in that field order so literal response bodies match spec.md's S2/S3
// examples byte for byte.
func buildResponseEnvelope(env *jsonrpc.Envelope) []byte {
	result := env.Result
	if result == nil {
		result = json.RawMessage("null")
	}
	v := struct {
		JSONRPC string               `json:"jsonrpc"`
		Result  json.RawMessage      `json:"result"`
		Error   *jsonrpc.ErrorObject `json:"error,omitempty"`
		ID      jsonrpc.ID           `json:"id"`
	}{
		JSONRPC: jsonrpc.Version,
		Result:  result,
		Error:   env.Error,
		ID:      env.ID,
	}
	data, _ := json.Marshal(v)
	return data
}

// buildNotificationEnvelope builds N per spec.md 4.5: jsonrpc, method
// (defaulting to ""), params (omitted entirely when absent).
func buildNotificationEnvelope(env *jsonrpc.Envelope) []byte {
	n := struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}{
		JSONRPC: jsonrpc.Version,
		Method:  env.Method,
		Params:  env.Params,
	}
	data, _ := json.Marshal(n)
	return data
}
