package client

import (
	"encoding/json"
	"sync"

	"bidding-app/internal/domain"
	"bidding-app/pkg/logger"
)

// NotificationListener turns hub invocations into an ordered stream of
// notification strings.
type NotificationListener struct {
	notifications chan string
	done          chan struct{}
	closeOnce     sync.Once
	log           logger.Logger
}

func NewNotificationListener(buffer int, log logger.Logger) *NotificationListener {
	return &NotificationListener{
		notifications: make(chan string, buffer),
		done:          make(chan struct{}),
		log:           log,
	}
}

// Bind registers the listener for event on the push channel. Call before
// the channel is started.
func (l *NotificationListener) Bind(channel domain.PushChannel, event string) {
	channel.On(event, l.handle)
}

func (l *NotificationListener) Notifications() <-chan string {
	return l.notifications
}

// Close releases a hub reader blocked on a full stream. Safe to call twice.
func (l *NotificationListener) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

func (l *NotificationListener) handle(arguments []json.RawMessage) {
	message := decodeNotification(arguments)

	select {
	case l.notifications <- message:
	case <-l.done:
		l.log.Debug("Dropping notification after close", "notification", message)
	}
}

func decodeNotification(arguments []json.RawMessage) string {
	if len(arguments) == 0 {
		return ""
	}
	var message string
	if err := json.Unmarshal(arguments[0], &message); err == nil {
		return message
	}
	return string(arguments[0])
}
