package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/quebracell/backend/internal/metrics"
)

const subscriberBuffer = 64

// Hub fans change events out to every live subscription. Writers never
// block on a slow subscriber: when a buffer is full the event is dropped
// and counted, and the consumer is expected to re-read the snapshot.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[int]subscriber
}

type subscriber struct {
	query Query
	ch    chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]subscriber)}
}

// Subscribe registers a filtered feed torn down when ctx is cancelled.
func (h *Hub) Subscribe(ctx context.Context, q Query) <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = subscriber{query: q, ch: ch}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish delivers ev to every subscriber whose query matches. Removed
// events carry no listing and are delivered to everyone; consumers that
// never held the id ignore them.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subs {
		if ev.Listing != nil && !sub.query.Matches(ev.Listing) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			metrics.FeedEventsDroppedTotal.Inc()
			zap.L().Warn("change feed subscriber too slow, event dropped",
				zap.String("listing_id", ev.ID), zap.String("event", string(ev.Type)))
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
