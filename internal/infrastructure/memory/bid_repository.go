package memory

import (
	"context"
	"sync"

	"bidding-app/internal/domain"
)

type BidRepository struct {
	mu     sync.RWMutex
	events map[int][]*domain.BidEvent
}

func NewBidRepository() *BidRepository {
	return &BidRepository{events: make(map[int][]*domain.BidEvent)}
}

func (r *BidRepository) SaveBidEvent(_ context.Context, event *domain.BidEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *event
	r.events[event.ProductID] = append(r.events[event.ProductID], &stored)
	return nil
}

func (r *BidRepository) GetBidHistory(_ context.Context, productID int) ([]*domain.BidEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	history := make([]*domain.BidEvent, 0, len(r.events[productID]))
	for _, e := range r.events[productID] {
		copied := *e
		history = append(history, &copied)
	}
	return history, nil
}
