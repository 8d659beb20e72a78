package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"test-report-backend/internal/shared/metrics"
	"test-report-backend/internal/shared/telemetry"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
	sendBuffer     = 16
)

// ErrSlowConsumer is returned when a connection's send buffer is full.
var ErrSlowConsumer = errors.New("live connection send buffer full")

// Hub keeps per-user rooms of websocket connections. A user may hold
// several connections; every one of them receives each event.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	rooms map[string]map[*conn]struct{}
}

type conn struct {
	ws     *websocket.Conn
	send   chan []byte
	userID string
	once   sync.Once
	done   chan struct{}
}

func (c *conn) close() {
	c.once.Do(func() { close(c.done) })
}

// NewHub builds a Hub accepting upgrades from allowedOrigins. An empty list
// or "*" accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{rooms: make(map[string]map[*conn]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Serve upgrades the request and joins the user's room. It blocks until the
// connection closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &conn{ws: ws, send: make(chan []byte, sendBuffer), userID: userID, done: make(chan struct{})}
	h.register(c)
	defer h.unregister(c)

	go h.writePump(c)
	h.readPump(c)
	return nil
}

// Publish pushes the event to every open connection of userID. A user with
// no connection is not an error.
func (h *Hub) Publish(ctx context.Context, userID string, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(toLiveMessage(event))
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	var dropped int
	for c := range h.rooms[userID] {
		select {
		case c.send <- payload:
		case <-c.done:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return ErrSlowConsumer
	}
	return nil
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for c := range room {
			c.close()
			_ = c.ws.Close()
		}
	}
}

func (h *Hub) register(c *conn) {
	h.mu.Lock()
	room, ok := h.rooms[c.userID]
	if !ok {
		room = make(map[*conn]struct{})
		h.rooms[c.userID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()

	metrics.AddLiveConnections(1)
	telemetry.Info("notification.live.connected", map[string]any{"user_id": c.userID})
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	if room, ok := h.rooms[c.userID]; ok {
		if _, present := room[c]; present {
			delete(room, c)
			metrics.AddLiveConnections(-1)
		}
		if len(room) == 0 {
			delete(h.rooms, c.userID)
		}
	}
	h.mu.Unlock()

	c.close()
	_ = c.ws.Close()
	telemetry.Info("notification.live.disconnected", map[string]any{"user_id": c.userID})
}

// readPump drains client frames so control messages are processed.
func (h *Hub) readPump(c *conn) {
	c.ws.SetReadLimit(maxInboundSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.close()
				_ = c.ws.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				_ = c.ws.Close()
				return
			}
		}
	}
}

var _ Publisher = (*Hub)(nil)
