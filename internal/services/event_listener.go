package services

import (
	"context"
	"fmt"

	"bidding-app/internal/domain"
	"bidding-app/pkg/logger"
)

// EventListener forwards published bid events to every hub client.
type EventListener struct {
	broadcaster domain.Broadcaster
	target      string
	log         logger.Logger
}

func NewEventListener(broadcaster domain.Broadcaster, target string, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster: broadcaster,
		target:      target,
		log:         log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener", "target", el.target)
	return subscriber.SubscribeToBidEvents(ctx, el.handleBidEvent)
}

func (el *EventListener) handleBidEvent(event *domain.BidEvent) error {
	el.log.Info("Handling bid event", "type", event.Type, "product_id", event.ProductID)

	switch event.Type {
	case domain.BidPlaced:
		return el.broadcaster.Broadcast(context.Background(), el.target, event.Notification())
	}

	return fmt.Errorf("unknown event type %q", event.Type)
}
