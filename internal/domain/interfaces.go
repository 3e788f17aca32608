package domain

import (
	"context"
	"encoding/json"
)

// Client side

type CatalogAPI interface {
	GetProducts(ctx context.Context) ([]Product, error)
	PlaceBid(ctx context.Context, req PlaceBidRequest) (string, error)
}

// PushChannel is a persistent, auto-reconnecting connection delivering named
// events from the server.
type PushChannel interface {
	On(target string, handler InvocationHandler)
	Start(ctx context.Context) error
	Stop() error
}

type InvocationHandler func(arguments []json.RawMessage)

// Server side

// Repository interfaces
type CatalogRepository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, productID int) (*Product, error)
	// CompareAndSetBid replaces the current bid only if it still equals
	// expected. It reports false when another bid got there first.
	CompareAndSetBid(ctx context.Context, productID int, expected, next string) (bool, error)
	Seed(ctx context.Context, products []Product) error
}

type BidRepository interface {
	SaveBidEvent(ctx context.Context, event *BidEvent) error
	GetBidHistory(ctx context.Context, productID int) ([]*BidEvent, error)
}

// Event interfaces
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type EventSubscriber interface {
	SubscribeToBidEvents(ctx context.Context, handler EventHandler) error
	// Subscribers reports how many subscriptions are live.
	Subscribers() int
}

type EventHandler func(event *BidEvent) error

// Notification interfaces
type Broadcaster interface {
	Broadcast(ctx context.Context, target string, arguments ...interface{}) error
}

// Validation interface
type BidValidator interface {
	ValidateIncrement(currentAmount, newAmount float64) bool
	GetMinimumBid(currentAmount float64) float64
}

// WebSocket interfaces
type HubConnection interface {
	Send(payload []byte) error
	Close() error
	ConnectionID() string
}

type ConnectionManager interface {
	RegisterConnection(conn HubConnection) error
	UnregisterConnection(connectionID string) error
	Connections() []HubConnection
	Broadcast(payload []byte) error
	CloseAll() error
	Count() int
}
