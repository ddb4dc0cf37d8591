package devserver

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// client is one connected participant. Writes are serialized; gorilla
// allows a single concurrent writer per connection.
type client struct {
	userID  string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// hub tracks participants per thread and relays frames between them,
// mirroring the production backend: new messages go to the other
// participants only, never back to the sender.
type hub struct {
	mu      sync.RWMutex
	threads map[string]map[*client]struct{}
}

func newHub() *hub {
	return &hub{threads: make(map[string]map[*client]struct{})}
}

func (h *hub) add(threadID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.threads[threadID]
	if !ok {
		room = make(map[*client]struct{})
		h.threads[threadID] = room
	}
	room[c] = struct{}{}
}

func (h *hub) remove(threadID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.threads[threadID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.threads, threadID)
		}
	}
}

func (h *hub) count(threadID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.threads[threadID])
}

// relay sends payload to every participant of the thread except the
// originator. A nil except broadcasts to everyone.
func (h *hub) relay(threadID string, except *client, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.threads[threadID] {
		if c == except {
			continue
		}
		if err := c.send(payload); err != nil {
			slog.Warn("relay failed", "thread", threadID, "user", c.userID, "error", err)
		}
	}
}
