package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bidding-app/internal/domain"
	"bidding-app/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ domain.PushChannel = (*fakePushChannel)(nil)

type fakePushChannel struct {
	handlers map[string]domain.InvocationHandler
}

func (f *fakePushChannel) On(target string, handler domain.InvocationHandler) {
	if f.handlers == nil {
		f.handlers = make(map[string]domain.InvocationHandler)
	}
	f.handlers[target] = handler
}

func (f *fakePushChannel) Start(context.Context) error { return nil }

func (f *fakePushChannel) Stop() error { return nil }

func (f *fakePushChannel) invoke(t *testing.T, target string, args ...interface{}) {
	t.Helper()
	raw := make([]json.RawMessage, 0, len(args))
	for _, a := range args {
		data, err := json.Marshal(a)
		require.NoError(t, err)
		raw = append(raw, data)
	}
	handler, ok := f.handlers[target]
	require.True(t, ok, "no handler for %s", target)
	handler(raw)
}

func TestNotificationListener_DeliversInOrder(t *testing.T) {
	channel := &fakePushChannel{}
	l := NewNotificationListener(8, logger.NewNop())
	l.Bind(channel, "ReceiveNotification")

	channel.invoke(t, "ReceiveNotification", "New bid of $130.00 placed on Watch")
	channel.invoke(t, "ReceiveNotification", "New bid of $140.00 placed on Watch")

	assert.Equal(t, "New bid of $130.00 placed on Watch", <-l.Notifications())
	assert.Equal(t, "New bid of $140.00 placed on Watch", <-l.Notifications())
}

func TestNotificationListener_CloseReleasesBlockedHandler(t *testing.T) {
	channel := &fakePushChannel{}
	l := NewNotificationListener(0, logger.NewNop())
	l.Bind(channel, "ReceiveNotification")

	done := make(chan struct{})
	go func() {
		channel.invoke(t, "ReceiveNotification", "nobody reads this")
		close(done)
	}()

	l.Close()
	l.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler still blocked after Close")
	}
}

func TestDecodeNotification(t *testing.T) {
	assert.Equal(t, "", decodeNotification(nil))
	assert.Equal(t, "hello", decodeNotification([]json.RawMessage{json.RawMessage(`"hello"`)}))
	assert.Equal(t, `{"a":1}`, decodeNotification([]json.RawMessage{json.RawMessage(`{"a":1}`)}))
}
