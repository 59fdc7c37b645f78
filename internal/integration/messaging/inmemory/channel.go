// Package inmemory provides a process-local event channel.
// It is suitable for single-instance deployments and tests; events do not survive a restart.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	"github.com/finance-tracker/ledger/internal/integration/messaging"
)

// DefaultBufferSize is the per-partition queue depth.
const DefaultBufferSize = 1024

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event channel is closed")

// Channel is an in-memory implementation of adapter.EventChannel.
// Each partition is a buffered Go channel drained by a single goroutine.
type Channel struct {
	partitions []chan adapter.EventMessage
	backoff    messaging.Backoff
	closeChan  chan struct{}
	mu         sync.RWMutex
	closed     bool
}

// NewChannel creates a channel with the given number of partitions.
func NewChannel(partitions, bufferSize int, backoff messaging.Backoff) *Channel {
	if partitions < 1 {
		partitions = 1
	}
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}

	queues := make([]chan adapter.EventMessage, partitions)
	for i := range queues {
		queues[i] = make(chan adapter.EventMessage, bufferSize)
	}

	return &Channel{
		partitions: queues,
		backoff:    backoff,
		closeChan:  make(chan struct{}),
	}
}

// Publish enqueues the event on its user's partition.
func (c *Channel) Publish(ctx context.Context, event *entity.DomainEvent) error {
	if !c.HealthCheck() {
		return ErrClosed
	}

	body, err := messaging.EncodeEvent(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	key := event.PartitionKey()
	partition := messaging.PartitionFor(key, len(c.partitions))
	msg := adapter.EventMessage{Key: key, Body: body, Partition: partition}

	select {
	case c.partitions[partition] <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closeChan:
		return ErrClosed
	}
}

// Subscribe drains every partition concurrently until ctx is cancelled or the channel is closed.
func (c *Channel) Subscribe(ctx context.Context, handler adapter.EventHandler) error {
	group, ctx := errgroup.WithContext(ctx)

	for i := range c.partitions {
		partition := i
		group.Go(func() error {
			c.drain(ctx, partition, handler)
			return nil
		})
	}

	slog.Info("Consuming in-memory event partitions", "partitions", len(c.partitions))
	return group.Wait()
}

func (c *Channel) drain(ctx context.Context, partition int, handler adapter.EventHandler) {
	queue := c.partitions[partition]
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closeChan:
			return
		case msg := <-queue:
			if messaging.Deliver(ctx, handler, msg, c.backoff) == messaging.OutcomeAbort {
				return
			}
		}
	}
}

// Pending returns the number of queued messages across all partitions.
func (c *Channel) Pending() int {
	total := 0
	for _, queue := range c.partitions {
		total += len(queue)
	}
	return total
}

// HealthCheck reports whether the channel still accepts events.
func (c *Channel) HealthCheck() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

// Close stops consumers and rejects further publishes.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.closeChan)
	return nil
}

var _ adapter.EventChannel = (*Channel)(nil)
