package adapter

import (
	"context"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// EventMessage is one delivery from the event channel.
type EventMessage struct {
	Key         string // Partition key (user ID)
	Body        []byte
	Partition   int
	Redelivered bool
}

// EventHandler processes one message. Returning nil acknowledges it; any
// other error asks the channel to redeliver without breaking partition order.
type EventHandler func(ctx context.Context, msg EventMessage) error

// EventPublisher publishes domain events keyed by user.
type EventPublisher interface {
	Publish(ctx context.Context, event *entity.DomainEvent) error
}

// EventSubscriber delivers messages to a handler until ctx is cancelled.
// Messages sharing a partition key are delivered one at a time, in publish order.
type EventSubscriber interface {
	Subscribe(ctx context.Context, handler EventHandler) error
}

// EventChannel is a partitioned, at-least-once event transport.
type EventChannel interface {
	EventPublisher
	EventSubscriber
	HealthCheck() bool
	Close() error
}
