package memory

import (
	"context"
	"sync"

	"bidding-app/internal/domain"
	"bidding-app/pkg/logger"
)

// EventBus fans bid events out to in-process subscribers. Publish blocks
// until every subscriber has accepted the event or the context ends.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[int]chan *domain.BidEvent
	nextID      int
	log         logger.Logger
}

func NewEventBus(log logger.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[int]chan *domain.BidEvent),
		log:         log,
	}
}

func (b *EventBus) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	b.mu.RLock()
	targets := make([]chan *domain.BidEvent, 0, len(b.subscribers))
	for _, ch := range b.subscribers {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (b *EventBus) SubscribeToBidEvents(ctx context.Context, handler domain.EventHandler) error {
	ch := make(chan *domain.BidEvent, 64)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}()

	for {
		select {
		case event := <-ch:
			if err := handler(event); err != nil {
				b.log.Error("Failed to handle event", "event_id", event.ID, "error", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Subscribers reports how many subscriptions are live.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
