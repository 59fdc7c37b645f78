// Package redisstream implements the event channel on Redis Streams.
// Each partition is one stream consumed through a consumer group, so unacknowledged
// entries stay pending and are redelivered to the same consumer after a restart.
package redisstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	"github.com/finance-tracker/ledger/internal/integration/messaging"
)

const (
	fieldKey  = "key"
	fieldBody = "body"

	defaultPollInterval = 100 * time.Millisecond
	defaultBatchSize    = 16
)

// Options configures a Channel.
type Options struct {
	Prefix     string
	Group      string
	Consumer   string
	Partitions int
	// Block is how long XREADGROUP waits for new entries. Negative disables blocking
	// and the consumer polls every PollInterval instead.
	Block        time.Duration
	PollInterval time.Duration
	BatchSize    int64
	// MaxLen trims each stream approximately to this length. Zero keeps everything.
	MaxLen  int64
	Backoff messaging.Backoff
}

// Channel is a Redis Streams implementation of adapter.EventChannel.
type Channel struct {
	client redis.UniversalClient
	opts   Options
}

// NewChannel creates a channel on an existing Redis client. The client is not owned by the channel.
func NewChannel(client redis.UniversalClient, opts Options) *Channel {
	if opts.Partitions < 1 {
		opts.Partitions = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	return &Channel{client: client, opts: opts}
}

func (c *Channel) streamName(partition int) string {
	return fmt.Sprintf("%s:%d", c.opts.Prefix, partition)
}

// Publish appends the event to its user's partition stream.
func (c *Channel) Publish(ctx context.Context, event *entity.DomainEvent) error {
	body, err := messaging.EncodeEvent(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	key := event.PartitionKey()
	stream := c.streamName(messaging.PartitionFor(key, c.opts.Partitions))

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			fieldKey:  key,
			fieldBody: string(body),
		},
	}
	if c.opts.MaxLen > 0 {
		args.MaxLen = c.opts.MaxLen
		args.Approx = true
	}

	if err := c.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}

// Subscribe consumes all partition streams concurrently until ctx is cancelled.
func (c *Channel) Subscribe(ctx context.Context, handler adapter.EventHandler) error {
	if err := c.ensureGroups(ctx); err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.opts.Partitions; i++ {
		partition := i
		group.Go(func() error {
			return c.consume(ctx, partition, handler)
		})
	}

	slog.Info("Consuming Redis event streams",
		"prefix", c.opts.Prefix,
		"group", c.opts.Group,
		"consumer", c.opts.Consumer,
		"partitions", c.opts.Partitions,
	)
	return group.Wait()
}

func (c *Channel) ensureGroups(ctx context.Context) error {
	for i := 0; i < c.opts.Partitions; i++ {
		stream := c.streamName(i)
		err := c.client.XGroupCreateMkStream(ctx, stream, c.opts.Group, "0").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("create consumer group on %s: %w", stream, err)
		}
	}
	return nil
}

func (c *Channel) consume(ctx context.Context, partition int, handler adapter.EventHandler) error {
	stream := c.streamName(partition)
	// "0" replays this consumer's pending entries first; ">" then reads new ones.
	cursor := "0"
	failures := 0

	for ctx.Err() == nil {
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.opts.Group,
			Consumer: c.opts.Consumer,
			Streams:  []string{stream, cursor},
			Count:    c.opts.BatchSize,
			Block:    c.opts.Block,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctx.Err() != nil {
				return nil
			}
			delay := c.opts.Backoff.Delay(failures)
			failures++
			slog.Error("Failed to read event stream",
				"stream", stream,
				"retry_in", delay,
				"error", err,
			)
			if messaging.SleepContext(ctx, delay) != nil {
				return nil
			}
			continue
		}
		failures = 0

		var entries []redis.XMessage
		for _, s := range streams {
			entries = append(entries, s.Messages...)
		}

		if len(entries) == 0 {
			if cursor == "0" {
				cursor = ">"
				continue
			}
			if c.opts.Block < 0 && messaging.SleepContext(ctx, c.opts.PollInterval) != nil {
				return nil
			}
			continue
		}

		for _, entry := range entries {
			msg := adapter.EventMessage{
				Key:         stringField(entry.Values, fieldKey),
				Body:        []byte(stringField(entry.Values, fieldBody)),
				Partition:   partition,
				Redelivered: cursor == "0",
			}

			if messaging.Deliver(ctx, handler, msg, c.opts.Backoff) == messaging.OutcomeAbort {
				return nil
			}

			if err := c.client.XAck(ctx, stream, c.opts.Group, entry.ID).Err(); err != nil {
				slog.Error("Failed to acknowledge event",
					"stream", stream,
					"id", entry.ID,
					"error", err,
				)
			}
		}
	}
	return nil
}

func stringField(values map[string]interface{}, field string) string {
	if v, ok := values[field].(string); ok {
		return v
	}
	return ""
}

// HealthCheck pings Redis.
func (c *Channel) HealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.client.Ping(ctx).Err() == nil
}

// Close is a no-op; the Redis client belongs to the caller.
func (c *Channel) Close() error {
	return nil
}

var _ adapter.EventChannel = (*Channel)(nil)
