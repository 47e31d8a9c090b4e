package messaging

import (
	"context"
)

// Broker publishes outbox events to subscribers outside the process.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

// Channels the service publishes on.
const (
	ChannelNotifications = "notifications"
)
