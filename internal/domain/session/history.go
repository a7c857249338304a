package session

// AppendHistory records a broadcast payload and returns the event id
// assigned to it. lastEventId is monotonic and never decremented; once
// history exceeds historyLimit entries the oldest is dropped (shift
// semantics), per spec.md section 3 invariant 2.
func (s *Session) AppendHistory(data []byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEventID++
	id := s.lastEventID
	s.history = append(s.history, HistoryEntry{EventID: id, Data: data})
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	return id
}

// NextEventID returns the id AppendHistory would assign to the next
// broadcast, without recording anything. Used to label a frame written
// outside the normal broadcast path; the id is not consumed, so the next
// AppendHistory call assigns the same id.
func (s *Session) NextEventID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastEventID + 1
}

// ReplayFrom returns messageHistory[fromIndex:], for Last-Event-ID resume
// (spec.md section 4.4). Per spec.md's literal wording and its S4
// scenario, Last-Event-ID is an index into the retained history array, not
// a lookup against the stored EventID values: the caller re-numbers the
// returned entries N, N+1, ... starting at fromIndex when it emits them,
// discarding each entry's original EventID. A negative fromIndex is
// clamped to 0 and yields the whole retained history; a fromIndex at or
// beyond the end yields no entries. The gateway does not reconstruct
// history that has already shifted out.
func (s *Session) ReplayFrom(fromIndex int64) []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fromIndex < 0 {
		fromIndex = 0
	}
	if fromIndex >= int64(len(s.history)) {
		return nil
	}
	out := make([]HistoryEntry, len(s.history)-int(fromIndex))
	copy(out, s.history[fromIndex:])
	return out
}

// HistoryLen reports the current retained history length, for tests.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}
