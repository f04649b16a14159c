package walletx

import (
	"sync"

	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/pkg/logger"
)

const subscriberBuffer = 64

// Hub fans ledger events out to subscribers. A subscriber that falls behind
// loses events instead of stalling the publisher.
type Hub struct {
	logger *logger.Logger

	mu     sync.Mutex
	subs   map[uint64]chan *models.Event
	nextID uint64
	closed bool
}

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{logger: logger, subs: make(map[uint64]chan *models.Event)}
}

// Subscribe returns a channel of events and a func that ends the subscription.
// The channel is closed when the subscription ends or the hub closes.
func (h *Hub) Subscribe() (<-chan *models.Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan *models.Event, subscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
}

func (h *Hub) Publish(event *models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			h.logger.Warn("Subscriber is too slow, dropping event", "subscriber", id, "type", event.Type)
		}
	}
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
