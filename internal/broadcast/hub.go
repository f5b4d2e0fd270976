package broadcast

import (
	"log/slog"
	"sync"

	"scalp_go/internal/domain"
	"scalp_go/internal/infra"

	"github.com/google/uuid"
)

// Subscriber receives one broadcast event. A non-nil error marks the delivery
// as failed for that subscriber only.
type Subscriber func(domain.TickEvent) error

// Hub fans finalized market events out to an open set of subscribers
// (typically WebSocket clients held by the API layer). One subscriber's
// delivery failure never affects the others.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]Subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]Subscriber)}
}

// Subscribe registers fn and returns the handle used to unsubscribe.
func (h *Hub) Subscribe(fn Subscriber) string {
	id := uuid.NewString()
	h.mu.Lock()
	h.subs[id] = fn
	h.mu.Unlock()
	infra.GlobalMetrics.IncrementSubscribers()
	return id
}

// Unsubscribe removes the subscriber; unknown handles are a no-op.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	_, ok := h.subs[id]
	delete(h.subs, id)
	h.mu.Unlock()
	if ok {
		infra.GlobalMetrics.DecrementSubscribers()
	}
}

// Count returns the current subscriber count.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Broadcast delivers ev to a point-in-time copy of the subscriber set, so
// subscribe/unsubscribe during delivery cannot race the iteration.
func (h *Hub) Broadcast(ev domain.TickEvent) {
	h.mu.RLock()
	targets := make(map[string]Subscriber, len(h.subs))
	for id, fn := range h.subs {
		targets[id] = fn
	}
	h.mu.RUnlock()

	for id, fn := range targets {
		if err := fn(ev); err != nil {
			infra.GlobalMetrics.RecordBroadcastError()
			slog.Warn("Broadcast delivery failed",
				slog.String("subscriber", id),
				slog.String("symbol", ev.Symbol),
				slog.Any("error", err))
		}
	}
}
