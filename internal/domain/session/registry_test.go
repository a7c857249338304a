package session

import (
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGetOrCreateMintsUUIDOnUnrecognizedHeader(t *testing.T) {
	r := NewRegistry()
	s, created := r.GetOrCreate("")
	if !created {
		t.Fatalf("expected a fresh session to be created")
	}
	if s.ID == "" {
		t.Fatalf("expected a non-empty session id")
	}
	if _, ok := r.Get(s.ID); !ok {
		t.Fatalf("expected the new session to be retrievable by id")
	}
}

func TestGetOrCreateReturnsExistingSession(t *testing.T) {
	r := NewRegistry()
	first, _ := r.GetOrCreate("")

	again, created := r.GetOrCreate(first.ID)
	if created {
		t.Fatalf("expected an existing session to not be recreated")
	}
	if again != first {
		t.Fatalf("expected the same session pointer back")
	}
}

func TestGetOrCreateUnknownHeaderMintsNewSession(t *testing.T) {
	r := NewRegistry()
	s, created := r.GetOrCreate("not-a-real-session-id")
	if !created {
		t.Fatalf("expected an unrecognized header value to mint a new session")
	}
	if s.ID == "not-a-real-session-id" {
		t.Fatalf("expected a freshly minted UUID, not the unrecognized header value")
	}
}

func TestDeleteRemovesSession(t *testing.T) {
	r := NewRegistry()
	s, _ := r.GetOrCreate("")
	r.Delete(s.ID)
	if _, ok := r.Get(s.ID); ok {
		t.Fatalf("expected session to be gone after Delete")
	}
}

func TestSnapshotIsConcurrencySafe(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.GetOrCreate("")
		}()
	}
	wg.Wait()

	if got := len(r.Snapshot()); got != 50 {
		t.Fatalf("expected 50 sessions, got %d", got)
	}
	if r.Count() != 50 {
		t.Fatalf("expected Count to match Snapshot length")
	}
}
