package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func hubHandler(hub *Hub) http.Handler {
	return http.HandlerFunc(hub.HandleWebSocket)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	srv := httptest.NewServer(hubHandler(hub))
	defer srv.Close()

	c1 := dial(t, srv)
	c2 := dial(t, srv)
	waitForClients(t, hub, 2)

	hub.Broadcast(Event{Type: EventStatusChanged, MediaID: "m-1", Data: map[string]string{"status": "Completed"}})

	for _, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != EventStatusChanged || ev.MediaID != "m-1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
		if ev.At.IsZero() {
			t.Fatal("event timestamp not set")
		}
	}
}

func TestHub_DisconnectDropsClient(t *testing.T) {
	hub := NewHub(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	srv := httptest.NewServer(hubHandler(hub))
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Broadcasting to an empty hub is a no-op.
	hub.Broadcast(Event{Type: EventLibrarySynced})
}

func TestHub_CloseDropsAll(t *testing.T) {
	hub := NewHub(slog.New(slog.NewJSONHandler(io.Discard, nil)))
	srv := httptest.NewServer(hubHandler(hub))
	defer srv.Close()

	dial(t, srv)
	dial(t, srv)
	waitForClients(t, hub, 2)

	hub.Close()
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("ClientCount after Close = %d, want 0", got)
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d (got %d)", want, hub.ClientCount())
}
