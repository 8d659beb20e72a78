package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func waitForConnections(t *testing.T, hub *Hub, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.Connections(userID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("connections for %s = %d, want %d", userID, hub.Connections(userID), want)
}

func TestHubDeliversToUserRoom(t *testing.T) {
	hub := NewHub(nil)
	a := dialHub(t, hub, "user-1")
	b := dialHub(t, hub, "user-1")
	other := dialHub(t, hub, "user-2")
	waitForConnections(t, hub, "user-1", 2)
	waitForConnections(t, hub, "user-2", 1)

	event := Event{ID: "e1", Kind: KindCompleted, Message: "done", DocumentID: "doc-1", CreatedAt: time.Now().UTC()}
	if err := hub.Publish(context.Background(), "user-1", event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, ws := range []*websocket.Conn{a, b} {
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		var msg LiveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.NotificationID != "e1" || msg.Type != "notification" || msg.DocumentID != "doc-1" {
			t.Fatalf("msg = %+v", msg)
		}
	}

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatalf("user-2 received an event for user-1")
	}
}

func TestHubPublishWithoutConnections(t *testing.T) {
	hub := NewHub(nil)
	if err := hub.Publish(context.Background(), "nobody", Event{ID: "e1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub := NewHub(nil)
	ws := dialHub(t, hub, "user-1")
	waitForConnections(t, hub, "user-1", 1)
	_ = ws.Close()
	waitForConnections(t, hub, "user-1", 0)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://app.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	if check(req) {
		t.Fatalf("unexpected origin accepted")
	}
	req.Header.Set("Origin", "https://app.example.com")
	if !check(req) {
		t.Fatalf("allowed origin rejected")
	}
	if !originChecker([]string{"*"})(req) {
		t.Fatalf("wildcard should accept")
	}
}
