// Package consumer applies ledger events to the analytics materializer.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/cache"
	"github.com/finance-tracker/ledger/internal/integration/messaging"
)

const defaultTrackedUsers = 10000

// Invalidator marks a user's analytics views stale.
type Invalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID, kinds ...entity.SnapshotKind) error
}

// Consumer turns every ledger event into an invalidation of the owning user's views.
// Handling is idempotent: a duplicate or reordered delivery only causes one more recompute.
type Consumer struct {
	subscriber  adapter.EventSubscriber
	invalidator Invalidator
	lastSeen    *cache.LRUCache[int64]
}

// Config holds consumer settings.
type Config struct {
	// TrackedUsers bounds how many users' last sequence is remembered for diagnostics.
	TrackedUsers int
}

// NewConsumer creates a new event consumer.
func NewConsumer(subscriber adapter.EventSubscriber, invalidator Invalidator, cfg Config) *Consumer {
	if cfg.TrackedUsers <= 0 {
		cfg.TrackedUsers = defaultTrackedUsers
	}
	return &Consumer{
		subscriber:  subscriber,
		invalidator: invalidator,
		lastSeen:    cache.NewLRUCache[int64](cfg.TrackedUsers, 0),
	}
}

// Start consumes events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	slog.Info("Event consumer started")
	err := c.subscriber.Subscribe(ctx, c.Handle)
	slog.Info("Event consumer stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handle processes one delivery. Malformed messages are logged and acknowledged;
// an invalidation failure is returned so the channel redelivers the message.
func (c *Consumer) Handle(ctx context.Context, msg adapter.EventMessage) error {
	event, err := messaging.DecodeEvent(msg.Body)
	if err != nil {
		logMalformed(msg, err)
		return nil
	}
	if msg.Key != "" && msg.Key != event.PartitionKey() {
		logMalformed(msg, domainerror.NewMalformedEventError(
			domainerror.ErrCodeInvalidEvent, "partition key does not match event user", nil))
		return nil
	}

	logger := slog.With(
		"event_type", event.EventType,
		"user_id", event.UserID,
		"transaction_id", event.TransactionID,
		"sequence", event.Sequence,
	)

	userKey := event.UserID.String()
	if last, ok := c.lastSeen.Get(userKey); ok && event.Sequence <= last {
		logger.Debug("Event is a duplicate or arrived late, invalidating anyway",
			"last_sequence", last,
			"redelivered", msg.Redelivered,
		)
	}

	start := time.Now()
	if err := c.invalidator.Invalidate(ctx, event.UserID); err != nil {
		logger.Error("Failed to invalidate analytics snapshots", "error", err)
		return err
	}

	if last, ok := c.lastSeen.Get(userKey); !ok || event.Sequence > last {
		c.lastSeen.Set(userKey, event.Sequence)
	}

	logger.Debug("Event applied", "duration", time.Since(start))
	return nil
}

// LastSequence returns the highest sequence applied for userID, if remembered.
func (c *Consumer) LastSequence(userID uuid.UUID) (int64, bool) {
	return c.lastSeen.Get(userID.String())
}

func logMalformed(msg adapter.EventMessage, err error) {
	slog.Warn("Dropping malformed event",
		"partition", msg.Partition,
		"key", msg.Key,
		"error", err,
	)
}
