package taskstore

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

var _ Subscriber = (*Hub)(nil)

// Hub fans Change values out to subscribers. A subscriber whose buffer is
// full misses the change.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]chan Change
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[string]chan Change)}
}

func (h *Hub) Subscribe(bufSize int) (string, <-chan Change) {
	id := ulid.Make().String()
	ch := make(chan Change, bufSize)
	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- c:
		default:
		}
	}
}

// Close unsubscribes everyone.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subscribers {
		close(ch)
		delete(h.subscribers, id)
	}
}
