package feed

import (
	"sync"

	"github.com/Daskott/lifealert/server/models"
)

const SUBSCRIBER_BUFFER = 16

// Subscription receives every alert published after it was created.
type Subscription struct {
	C <-chan models.Alert

	ch  chan models.Alert
	hub *Hub
}

func (sub *Subscription) Close() {
	sub.hub.unsubscribe(sub)
}

// Hub fans out newly inserted alerts to live subscribers. A subscriber that
// falls behind misses alerts rather than blocking the publisher.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	closed      bool
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[*Subscription]struct{})}
}

func (h *Hub) Subscribe() *Subscription {
	ch := make(chan models.Alert, SUBSCRIBER_BUFFER)
	sub := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return sub
	}
	h.subscribers[sub] = struct{}{}

	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; !ok {
		return
	}
	delete(h.subscribers, sub)
	close(sub.ch)
}

// Publish returns the number of subscribers the alert was delivered to
func (h *Hub) Publish(alert models.Alert) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := 0
	for sub := range h.subscribers {
		select {
		case sub.ch <- alert:
			delivered++
		default:
		}
	}

	return delivered
}

// Close ends every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true

	for sub := range h.subscribers {
		close(sub.ch)
		delete(h.subscribers, sub)
	}
}
