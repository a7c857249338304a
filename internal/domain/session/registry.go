package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the thread-safe session-id-to-Session map described as C3 in
// spec.md section 4.3. It is the sole owner of Session values; every other
// component holds a borrowed pointer scoped to a single operation.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry builds an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session named by headerValue, or creates a new
// one (minting a UUID v4 id) if headerValue is empty or unrecognized. The
// second return value reports whether a new session was created.
func (r *Registry) GetOrCreate(headerValue string) (*Session, bool) {
	if headerValue != "" {
		r.mu.RLock()
		s, ok := r.sessions[headerValue]
		r.mu.RUnlock()
		if ok {
			return s, false
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if headerValue != "" {
		if s, ok := r.sessions[headerValue]; ok {
			return s, false
		}
	}
	id := uuid.NewString()
	s := newSession(id)
	r.sessions[id] = s
	return s, true
}

// Get looks up a session by id without creating one.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete removes a session from the registry. It does not end the
// session's live responses; callers must call Session.EndAll first.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Snapshot returns a point-in-time copy of every registered session, for
// the outbound correlator's per-line scan (spec.md section 4.5) and for
// the /metrics surface's stream and pending-request gauges.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Count reports the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
