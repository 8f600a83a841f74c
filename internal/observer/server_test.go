package observer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aristath/colony/internal/events"
	"github.com/aristath/colony/internal/sim"
)

type fakeGame struct{ tick atomic.Int64 }

func (f *fakeGame) Snapshot() sim.Snapshot {
	return sim.Snapshot{Tick: f.tick.Load(), Season: "Spring"}
}

func newTestServer(t *testing.T) (*Server, *fakeGame, *events.EventBus, *httptest.Server) {
	t.Helper()
	game := &fakeGame{}
	bus := events.NewEventBus()
	s := NewServer(game, bus, Config{SnapshotInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go s.broadcast(ctx)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
		bus.Close()
	})
	return s, game, bus, ts
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(b, &msg); err != nil {
		t.Fatalf("decoding frame %s: %v", b, err)
	}
	return msg
}

// TestBoardStream verifies a client gets a snapshot on join, then bus
// events, then a snapshot on request.
func TestBoardStream(t *testing.T) {
	_, game, bus, ts := newTestServer(t)
	game.tick.Store(42)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/board"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readMessage(t, conn)
	if first.Type != TypeSnapshot {
		t.Fatalf("first frame type = %q, want snapshot", first.Type)
	}
	if data, _ := first.Data.(map[string]any); data["tick"] != float64(42) {
		t.Errorf("snapshot data = %v, want tick 42", first.Data)
	}

	// The client is registered once the first snapshot arrives
	bus.Publish(events.TopicJob, events.JobAddedEvent{ID: "job-1", Name: "dig"})
	ev := readMessage(t, conn)
	if ev.Type != events.EventTypeJobAdded {
		t.Fatalf("event frame type = %q, want %q", ev.Type, events.EventTypeJobAdded)
	}
	if data, _ := ev.Data.(map[string]any); data["ID"] != "job-1" {
		t.Errorf("event data = %v", ev.Data)
	}

	game.tick.Store(43)
	if err := conn.WriteJSON(Message{Type: TypeRequest}); err != nil {
		t.Fatalf("writing request: %v", err)
	}
	snap := readMessage(t, conn)
	if data, _ := snap.Data.(map[string]any); snap.Type != TypeSnapshot || data["tick"] != float64(43) {
		t.Errorf("requested frame = %+v", snap)
	}
}

// TestClientLeaves verifies a closed connection is unregistered.
func TestClientLeaves(t *testing.T) {
	s, _, _, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/board"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	readMessage(t, conn)
	if n := s.clientCount(); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}
	conn.Close()

	deadline := time.After(5 * time.Second)
	for s.clientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("client never unregistered")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHTTPEndpoints(t *testing.T) {
	_, game, _, ts := newTestServer(t)
	game.tick.Store(7)

	tests := []struct {
		path   string
		method string
		status int
		key    string
	}{
		{"/healthz", http.MethodGet, http.StatusOK, "status"},
		{"/v1/bootstrap", http.MethodGet, http.StatusOK, "tick"},
		{"/v1/bootstrap", http.MethodPost, http.StatusMethodNotAllowed, ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			if tt.key == "" {
				return
			}
			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if _, ok := body[tt.key]; !ok {
				t.Errorf("body %v lacks %q", body, tt.key)
			}
		})
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:5000", true},
		{"[::1]:5000", true},
		{"::1", true},
		{"10.0.0.4:5000", false},
		{"example.com:80", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isLoopbackRemote(tt.addr); got != tt.want {
			t.Errorf("isLoopbackRemote(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

// TestRunStopsOnCancel verifies Run serves until its context ends.
func TestRunStopsOnCancel(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Close()
	s := NewServer(&fakeGame{}, bus, Config{Addr: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
