package websocket

import (
	"bidding-app/internal/domain"
	"bidding-app/internal/infrastructure/signalr"
	"context"
	"fmt"
)

// HubBroadcaster turns invocations into framed hub messages for every
// connected client.
type HubBroadcaster struct {
	connManager domain.ConnectionManager
}

func NewHubBroadcaster(connManager domain.ConnectionManager) *HubBroadcaster {
	return &HubBroadcaster{connManager: connManager}
}

func (b *HubBroadcaster) Broadcast(ctx context.Context, target string, arguments ...interface{}) error {
	msg, err := signalr.NewInvocation(target, arguments...)
	if err != nil {
		return err
	}
	frame, err := signalr.Frame(msg)
	if err != nil {
		return fmt.Errorf("encode invocation %s: %w", target, err)
	}
	return b.connManager.Broadcast(frame)
}
