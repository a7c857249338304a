package correlate

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/streamgate/streamgate/internal/domain/session"
	"github.com/streamgate/streamgate/pkg/jsonrpc"
)

type recordedJSON struct {
	status int
	body   []byte
}

type recordedSSE struct {
	eventID int64
	event   string
	data    []byte
}

type fakeHandle struct {
	mu    sync.Mutex
	ended bool
	json  []recordedJSON
	sse   []recordedSSE
}

func (h *fakeHandle) WriteJSON(status int, body []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.json = append(h.json, recordedJSON{status: status, body: append([]byte(nil), body...)})
	h.ended = true
	return nil
}

func (h *fakeHandle) WriteSSE(eventID int64, event string, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sse = append(h.sse, recordedSSE{eventID: eventID, event: event, data: append([]byte(nil), data...)})
	return nil
}

func (h *fakeHandle) End() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ended = true
}

func (h *fakeHandle) Ended() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ended
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchDirectBatchReply(t *testing.T) {
	registry := session.NewRegistry()
	s, _ := registry.GetOrCreate("")
	h := &fakeHandle{}
	s.RegisterPending("7", &session.PendingRequest{ID: jsonrpc.ID([]byte("7")), Mode: session.ModeBatch})
	s.RegisterResponseSlot("7", session.SlotPending, h, "")

	c := New(registry, discardLogger())
	c.Dispatch([]byte(`{"jsonrpc":"2.0","id":7,"result":{"x":1}}`))

	if len(h.json) != 1 {
		t.Fatalf("expected exactly one JSON write, got %d", len(h.json))
	}
	if h.json[0].status != 200 {
		t.Fatalf("expected status 200, got %d", h.json[0].status)
	}
	want := `{"jsonrpc":"2.0","result":{"x":1},"id":7}`
	if string(h.json[0].body) != want {
		t.Fatalf("got %s, want %s", h.json[0].body, want)
	}
}

func TestDispatchStreamModeBroadcastsToAllLiveResponses(t *testing.T) {
	registry := session.NewRegistry()
	s, _ := registry.GetOrCreate("")
	s.RegisterPending("q", &session.PendingRequest{ID: jsonrpc.ID([]byte(`"q"`)), Mode: session.ModeStream})
	stream1 := &fakeHandle{}
	stream2 := &fakeHandle{}
	s.RegisterResponseSlot("stream-a", session.SlotStream, stream1, "q")
	s.RegisterResponseSlot("stream-b", session.SlotStream, stream2, "")

	c := New(registry, discardLogger())
	c.Dispatch([]byte(`{"jsonrpc":"2.0","id":"q","result":{"ok":true}}`))

	if len(stream1.sse) != 1 || len(stream2.sse) != 1 {
		t.Fatalf("expected both live streams to receive the broadcast, got %d and %d", len(stream1.sse), len(stream2.sse))
	}
	if stream1.sse[0].eventID != stream2.sse[0].eventID {
		t.Fatalf("expected both recipients to see the same event id for one broadcast")
	}
	if s.HistoryLen() != 1 {
		t.Fatalf("expected exactly one history entry appended per broadcast, got %d", s.HistoryLen())
	}
}

func TestDispatchNotificationBroadcastsToEverySession(t *testing.T) {
	registry := session.NewRegistry()
	a, _ := registry.GetOrCreate("")
	b, _ := registry.GetOrCreate("")
	ha := &fakeHandle{}
	hb := &fakeHandle{}
	a.RegisterResponseSlot("sa", session.SlotStream, ha, "")
	b.RegisterResponseSlot("sb", session.SlotStream, hb, "")

	c := New(registry, discardLogger())
	c.Dispatch([]byte(`{"jsonrpc":"2.0","method":"notifications/progress","params":{"p":1}}`))

	if len(ha.sse) != 1 || len(hb.sse) != 1 {
		t.Fatalf("expected every session's live streams to receive the notification")
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(ha.sse[0].data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, hasID := decoded["id"]; hasID {
		t.Fatalf("notification envelope must not carry an id field")
	}
}

func TestDispatchIgnoresSessionsThatDidNotOriginateTheRequest(t *testing.T) {
	registry := session.NewRegistry()
	unrelated, _ := registry.GetOrCreate("")
	h := &fakeHandle{}
	unrelated.RegisterResponseSlot("s", session.SlotStream, h, "")

	c := New(registry, discardLogger())
	c.Dispatch([]byte(`{"jsonrpc":"2.0","id":99,"result":null}`))

	if len(h.sse) != 0 || len(h.json) != 0 {
		t.Fatalf("expected a reply to an id no session registered to be dropped silently")
	}
}

func TestDispatchBatchFallbackWhenOwnResponseGone(t *testing.T) {
	registry := session.NewRegistry()
	s, _ := registry.GetOrCreate("")
	s.RegisterPending("5", &session.PendingRequest{ID: jsonrpc.ID([]byte("5")), Mode: session.ModeBatch})
	// The batch POST's own response slot already disconnected and was
	// removed, but some other live stream remains on the session.
	fallback := &fakeHandle{}
	s.RegisterResponseSlot("other-stream", session.SlotStream, fallback, "")

	c := New(registry, discardLogger())
	c.Dispatch([]byte(`{"jsonrpc":"2.0","id":5,"result":{"late":true}}`))

	if len(fallback.json) != 1 {
		t.Fatalf("expected the late reply to land on the only other live response, got %d writes", len(fallback.json))
	}
}

func TestDispatchDropsWhenNoLiveResponseRemains(t *testing.T) {
	registry := session.NewRegistry()
	s, _ := registry.GetOrCreate("")
	s.RegisterPending("5", &session.PendingRequest{ID: jsonrpc.ID([]byte("5")), Mode: session.ModeBatch})

	c := New(registry, discardLogger())
	c.Dispatch([]byte(`{"jsonrpc":"2.0","id":5,"result":{}}`))
}
