package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RamanujanDittakavi/multiplayer-battle-simulator/internal/logger"
)

// dialConn returns a live client-side connection against a parked server.
// Client internals only ever Close it, so the server half can be idle.
func dialConn(t *testing.T) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := upgrader.Upgrade(w, r, nil); err != nil {
			t.Errorf("upgrade failed: %v", err)
		}
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (c *Client) isClosed() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.closed
}

func TestTrySend_FullBufferAndClosedClient(t *testing.T) {
	c := &Client{conn: dialConn(t), send: make(chan Event, 1)}

	if !c.trySend(newEvent("first", nil)) {
		t.Fatal("send into empty buffer failed")
	}
	if c.trySend(newEvent("second", nil)) {
		t.Fatal("send into full buffer should report false")
	}

	c.close()
	c.close() // idempotent

	// Sends after close are no-ops, never panics
	if c.trySend(newEvent("late", nil)) {
		t.Fatal("send to closed client should report false")
	}
	c.sendError("late error")
}

func TestBroadcast_SlowClientIsDroppedSafely(t *testing.T) {
	h := New(logger.New(), nil, nil, "")
	h.Start()

	c := &Client{hub: h, conn: dialConn(t), send: make(chan Event, 1), roomID: "AB12CD"}
	h.register <- c

	// Nothing drains the buffer; the second broadcast finds it full and
	// drops the client.
	h.broadcast("AB12CD", newEvent("first", nil), nil)
	h.broadcast("AB12CD", newEvent("second", nil), nil)

	deadline := time.Now().Add(2 * time.Second)
	for !c.isClosed() {
		if time.Now().After(deadline) {
			t.Fatal("dropped client never closed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The client's own read path may still race in events after the drop;
	// every send must stay a safe no-op.
	h.broadcast("AB12CD", newEvent("third", nil), nil)
	if c.trySend(newEvent("straggler", nil)) {
		t.Fatal("send to dropped client should report false")
	}
	c.sendError("straggler error")

	h.mutex.RLock()
	_, subscribed := h.rooms["AB12CD"]
	h.mutex.RUnlock()
	if subscribed {
		t.Fatal("dropped client still subscribed")
	}
}
