// Package session implements the gateway's per-client correlation state:
// the session registry (C3) and per-session state (C4) described in
// spec.md sections 3 and 4.3/4.4. A Session tracks which HTTP responses are
// still waiting on a child reply, which request ids are in flight, and the
// bounded history of broadcast SSE payloads used for Last-Event-ID replay.
package session

import (
	"sync"
	"time"

	"github.com/streamgate/streamgate/pkg/jsonrpc"
)

// ResponseMode distinguishes a POST that blocks for one JSON reply from a
// POST that has switched its own connection to an SSE stream.
type ResponseMode int

const (
	ModeBatch ResponseMode = iota
	ModeStream
)

// SlotKind tags the two kinds of response-slot key spec.md section 3
// describes: a request-id key awaiting a single JSON reply, or a stream
// key fanned out to on every broadcast. Kept as a tagged field on Slot
// rather than as two separate maps, per spec.md section 9's note that
// either representation is acceptable as long as the observable behavior
// matches; a single map keeps getOrCreate/delete/snapshot uniform.
type SlotKind int

const (
	SlotPending SlotKind = iota
	SlotStream
)

// ResponseHandle is the minimal surface the session package needs from a
// live HTTP response: write a one-shot JSON body, write an SSE frame, and
// report whether the underlying connection has already ended (client
// disconnect or a prior write). Implemented by the HTTP adapter; the
// session package never touches net/http directly.
type ResponseHandle interface {
	WriteJSON(statusCode int, body []byte) error
	WriteSSE(eventID int64, event string, data []byte) error
	End()
	Ended() bool
}

// Slot is one entry of a Session's responses map.
type Slot struct {
	Kind Kind
	// PendingKey is the request-id key this slot's eventual reply is
	// correlated against, if any. For a SlotPending entry it equals the
	// map key it is stored under. For a SlotStream entry created by a
	// POST in stream mode it names the request id whose reply, once it
	// arrives, is broadcast to this (and every other) live stream; for a
	// SlotStream entry opened by a bare GET it is empty.
	PendingKey string
	Handle     ResponseHandle
}

// Kind is an alias kept so call sites can write session.Kind without
// stuttering on SlotKind; both names refer to the same type.
type Kind = SlotKind

// PendingRequest is the bookkeeping the gateway keeps for an in-flight
// request: the original id (for logging and timeout error bodies) and the
// response mode, which the outbound correlator needs to decide whether a
// late reply is delivered as one JSON body or broadcast as an SSE event.
type PendingRequest struct {
	ID         jsonrpc.ID
	Method     string
	Mode       ResponseMode
	ReceivedAt time.Time
}

// HistoryEntry is one broadcast payload retained for Last-Event-ID replay.
type HistoryEntry struct {
	EventID int64
	Data    []byte
}

// SlotEntry pairs a map key with its Slot, returned by snapshot operations
// so callers can write to response handles without holding the session
// lock across a blocking I/O call.
type SlotEntry struct {
	Key  string
	Slot *Slot
}

const historyLimit = 100

// Session is per-client gateway state. All fields are guarded by mu; no
// field is ever read or written without holding it. Per spec.md section 5,
// handlers must copy out what they need and release the lock before any
// blocking response write.
type Session struct {
	ID string

	mu              sync.Mutex
	responses       map[string]*Slot
	pendingRequests map[string]*PendingRequest
	pendingIndex    map[string]string // pending key -> slot key, for batch slots and stream-mode POST slots
	history         []HistoryEntry
	lastEventID     int64
	createdAt       time.Time
}

func newSession(id string) *Session {
	return &Session{
		ID:              id,
		responses:       make(map[string]*Slot),
		pendingRequests: make(map[string]*PendingRequest),
		pendingIndex:    make(map[string]string),
		createdAt:       time.Now(),
	}
}

// CreatedAt reports when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}
