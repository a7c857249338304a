package session

// RegisterPending records an in-flight request under key (the stringified
// JSON-RPC id, via pkg/jsonrpc.Key). Per spec.md section 9's documented
// constraint, a numeric id and a string id that stringify identically
// collide here: the second registration silently overwrites the first's
// map entry. This is not fixed; it is the specified behavior.
func (s *Session) RegisterPending(key string, pr *PendingRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingRequests[key] = pr
}

// RegisterResponseSlot stores a live response handle under slotKey. For a
// SlotStream entry whose eventual reply must be correlated back to a
// specific pending request (a POST that switched to stream mode), pass the
// request-id key as pendingKey so the timeout scheduler and correlator can
// find this slot from the pending side too; pass "" for a bare GET stream.
func (s *Session) RegisterResponseSlot(slotKey string, kind Kind, handle ResponseHandle, pendingKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	effectivePendingKey := pendingKey
	if effectivePendingKey == "" && kind == SlotPending {
		effectivePendingKey = slotKey
	}
	s.responses[slotKey] = &Slot{Kind: kind, Handle: handle, PendingKey: effectivePendingKey}
	if effectivePendingKey != "" {
		s.pendingIndex[effectivePendingKey] = slotKey
	}
}

// ClaimDirectReply implements outbound correlator branch 1 (spec.md 4.5):
// if a response slot exists under key and has not already ended, atomically
// remove it and the matching pending entry and return its handle for a
// one-shot JSON write. If the slot exists but has already ended (a
// disconnect the handler hasn't cleaned up yet), it is cleaned up here and
// the claim fails, so the caller falls through to the pending-only branch.
func (s *Session) ClaimDirectReply(key string) (ResponseHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.responses[key]
	if !ok {
		return nil, false
	}
	if slot.Handle.Ended() {
		delete(s.responses, key)
		delete(s.pendingRequests, key)
		delete(s.pendingIndex, key)
		return nil, false
	}
	delete(s.responses, key)
	delete(s.pendingRequests, key)
	delete(s.pendingIndex, key)
	return slot.Handle, true
}

// ClaimPending implements the entry to outbound correlator branch 2: if a
// pending request is registered under key, remove it and return it so the
// caller can broadcast or fan out its reply per the request's mode.
func (s *Session) ClaimPending(key string) (*PendingRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.pendingRequests[key]
	if !ok {
		return nil, false
	}
	delete(s.pendingRequests, key)
	slotKey, hasSlot := s.pendingIndex[key]
	if hasSlot {
		delete(s.pendingIndex, key)
	}
	_ = slotKey
	return pr, true
}

// HasPending reports whether key is currently registered, without
// claiming it or mutating state.
func (s *Session) HasPending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pendingRequests[key]
	return ok
}

// RemoveResponseSlot removes slotKey from the responses map and, if it was
// linked to a pending request (a POST in stream mode, or a batch slot
// whose key equals its own pending key), removes that pending entry too.
// This is the cancellation path spec.md section 5 describes for client
// disconnect: both entries disappear together so a later timeout or
// correlator dispatch finds nothing and exits silently.
func (s *Session) RemoveResponseSlot(slotKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.responses[slotKey]
	if !ok {
		return
	}
	delete(s.responses, slotKey)
	if slot.PendingKey != "" {
		delete(s.pendingRequests, slot.PendingKey)
		delete(s.pendingIndex, slot.PendingKey)
	}
}

// TryTimeout implements the Timeout Scheduler (C7, spec.md 4.6): if key is
// still pending, remove it and its linked response slot (if any) and
// return the slot's handle so the caller can write the timeout error. If
// key is no longer pending, the reply already arrived or the client
// already disconnected; the caller must do nothing. A linked handle that
// has already ended is not returned.
func (s *Session) TryTimeout(key string) (ResponseHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.pendingRequests[key]
	if !ok {
		return nil, false
	}
	_ = pr
	delete(s.pendingRequests, key)
	slotKey, hasSlot := s.pendingIndex[key]
	if !hasSlot {
		return nil, true
	}
	delete(s.pendingIndex, key)
	slot, ok := s.responses[slotKey]
	if !ok {
		return nil, true
	}
	delete(s.responses, slotKey)
	if slot.Handle.Ended() {
		return nil, true
	}
	return slot.Handle, true
}

// ClaimAnyLive removes and returns the first non-ended response slot it
// finds, for the outbound correlator's batch-mode fallback delivery
// (spec.md 4.5 branch 2): a late reply whose own response slot has
// already disappeared is delivered atop any other still-open connection
// in the session rather than silently dropped. Map iteration order is
// unspecified, matching the spec's "first one wins" wording, which does
// not require a particular tie-break.
func (s *Session) ClaimAnyLive() (ResponseHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, slot := range s.responses {
		if slot.Handle.Ended() {
			continue
		}
		delete(s.responses, k)
		if slot.PendingKey != "" {
			delete(s.pendingRequests, slot.PendingKey)
			delete(s.pendingIndex, slot.PendingKey)
		}
		return slot.Handle, true
	}
	return nil, false
}

// SnapshotResponseSlots returns a point-in-time copy of the responses map
// for broadcast or fallback delivery. Callers must not write to a handle
// while holding any session lock; this method itself releases the lock
// before returning.
func (s *Session) SnapshotResponseSlots() []SlotEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SlotEntry, 0, len(s.responses))
	for k, v := range s.responses {
		out = append(out, SlotEntry{Key: k, Slot: v})
	}
	return out
}

// EndAll ends every live response handle in the session, used by DELETE
// (spec.md 4.4) to tear down every open SSE stream and outstanding POST
// before the session itself is removed from the registry.
func (s *Session) EndAll() {
	s.mu.Lock()
	slots := make([]*Slot, 0, len(s.responses))
	for _, v := range s.responses {
		slots = append(slots, v)
	}
	s.responses = make(map[string]*Slot)
	s.pendingRequests = make(map[string]*PendingRequest)
	s.pendingIndex = make(map[string]string)
	s.mu.Unlock()

	for _, slot := range slots {
		slot.Handle.End()
	}
}

// PendingCount reports the number of in-flight requests, exposed for the
// /metrics surface.
func (s *Session) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingRequests)
}

// StreamCount reports the number of registered SSE stream slots
// (SlotStream), exposed for the /metrics surface. Batch POST slots are
// not counted.
func (s *Session) StreamCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, slot := range s.responses {
		if slot.Kind == SlotStream {
			n++
		}
	}
	return n
}
