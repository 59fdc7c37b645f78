// Package rabbitmq implements the event channel on a RabbitMQ direct exchange.
// Every partition is a durable queue bound under its own routing key and consumed
// with prefetch 1, so a user's events are handled one at a time in publish order.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/errgroup"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	"github.com/finance-tracker/ledger/internal/integration/messaging"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second

	headerPartitionKey = "partition_key"
)

// ErrCircuitOpen is returned by Publish while the broker is considered down.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Options configures a Channel.
type Options struct {
	URL         string
	Exchange    string
	QueuePrefix string
	Partitions  int
	Backoff     messaging.Backoff
}

// Channel is a RabbitMQ implementation of adapter.EventChannel.
type Channel struct {
	url          string
	exchangeName string
	queuePrefix  string
	partitions   int
	backoff      messaging.Backoff

	mu         sync.Mutex
	conn       *amqp091.Connection
	pubChannel *amqp091.Channel

	state        int32
	failureCount int64
	cbMu         sync.Mutex
	lastFailure  time.Time
}

// Dial connects to the broker and declares the exchange and partition queues.
func Dial(opts Options) (*Channel, error) {
	if opts.Partitions < 1 {
		opts.Partitions = 1
	}

	c := &Channel{
		url:          opts.URL,
		exchangeName: opts.Exchange,
		queuePrefix:  opts.QueuePrefix,
		partitions:   opts.Partitions,
		backoff:      opts.Backoff,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.publishChannelLocked(); err != nil {
		return nil, err
	}

	slog.Info("Connected to AMQP broker",
		"exchange", c.exchangeName,
		"partitions", c.partitions,
	)
	return c, nil
}

// queueName is also the routing key of the partition.
func (c *Channel) queueName(partition int) string {
	return fmt.Sprintf("%s.%d", c.queuePrefix, partition)
}

// publishChannelLocked returns a confirm-mode channel, reconnecting when needed.
func (c *Channel) publishChannelLocked() (*amqp091.Channel, error) {
	if c.conn != nil && !c.conn.IsClosed() && c.pubChannel != nil && !c.pubChannel.IsClosed() {
		return c.pubChannel, nil
	}
	c.resetLocked()

	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queues: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	c.conn = conn
	c.pubChannel = channel
	return channel, nil
}

func (c *Channel) setup(channel *amqp091.Channel) error {
	err := channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	for p := 0; p < c.partitions; p++ {
		name := c.queueName(p)

		_, err = channel.QueueDeclare(
			name,  // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}

		if err := channel.QueueBind(name, name, c.exchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", name, err)
		}
	}

	return nil
}

func (c *Channel) resetLocked() {
	if c.pubChannel != nil {
		_ = c.pubChannel.Close()
		c.pubChannel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Publish sends the event to its partition queue and waits for the broker confirm.
func (c *Channel) Publish(ctx context.Context, event *entity.DomainEvent) error {
	if c.isCircuitOpen() {
		return ErrCircuitOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := messaging.EncodeEvent(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	key := event.PartitionKey()
	routingKey := c.queueName(messaging.PartitionFor(key, c.partitions))

	c.mu.Lock()
	defer c.mu.Unlock()

	channel, err := c.publishChannelLocked()
	if err != nil {
		c.recordFailure()
		return err
	}

	confirm, err := channel.PublishWithDeferredConfirmWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Headers:      amqp091.Table{headerPartitionKey: key},
			Body:         body,
		},
	)
	if err != nil {
		if isConnectionError(err) {
			c.resetLocked()
		}
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("wait for publisher confirm: %w", err)
	}
	if !acked {
		c.recordFailure()
		return errors.New("broker rejected message")
	}

	c.recordSuccess()
	slog.Debug("Published transaction event",
		"event_type", event.EventType,
		"user_id", key,
		"sequence", event.Sequence,
		"routing_key", routingKey,
	)
	return nil
}

// Subscribe consumes every partition queue until ctx is cancelled,
// reconnecting with backoff when the broker connection drops.
func (c *Channel) Subscribe(ctx context.Context, handler adapter.EventHandler) error {
	for attempt := 0; ; attempt++ {
		err := c.subscribeOnce(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}

		delay := c.backoff.Delay(attempt)
		slog.Error("AMQP consumer stopped, reconnecting",
			"error", err,
			"retry_in", delay,
		)
		if messaging.SleepContext(ctx, delay) != nil {
			return nil
		}
	}
}

func (c *Channel) subscribeOnce(ctx context.Context, handler adapter.EventHandler) error {
	c.mu.Lock()
	if _, err := c.publishChannelLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	conn := c.conn
	c.mu.Unlock()

	group, ctx := errgroup.WithContext(ctx)
	for p := 0; p < c.partitions; p++ {
		partition := p
		channel, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("open consumer channel: %w", err)
		}
		defer channel.Close()

		if err := channel.Qos(1, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}

		deliveries, err := channel.Consume(
			c.queueName(partition), // queue
			"",                     // consumer
			false,                  // auto-ack (we want manual ack)
			false,                  // exclusive
			false,                  // no-local
			false,                  // no-wait
			nil,                    // args
		)
		if err != nil {
			return fmt.Errorf("start consuming %s: %w", c.queueName(partition), err)
		}

		group.Go(func() error {
			return c.consume(ctx, partition, deliveries, handler)
		})
	}

	slog.Info("Consuming AMQP event partitions",
		"exchange", c.exchangeName,
		"partitions", c.partitions,
	)
	return group.Wait()
}

func (c *Channel) consume(ctx context.Context, partition int, deliveries <-chan amqp091.Delivery, handler adapter.EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for partition %d closed", partition)
			}

			msg := adapter.EventMessage{
				Key:         partitionKey(delivery),
				Body:        delivery.Body,
				Partition:   partition,
				Redelivered: delivery.Redelivered,
			}

			switch messaging.Deliver(ctx, handler, msg, c.backoff) {
			case messaging.OutcomeAck:
				if err := delivery.Ack(false); err != nil {
					return fmt.Errorf("ack: %w", err)
				}
			case messaging.OutcomeDrop:
				if err := delivery.Nack(false, false); err != nil {
					return fmt.Errorf("nack: %w", err)
				}
			case messaging.OutcomeAbort:
				// Left unacknowledged; the broker redelivers it once the channel closes.
				return nil
			}
		}
	}
}

func partitionKey(delivery amqp091.Delivery) string {
	if v, ok := delivery.Headers[headerPartitionKey].(string); ok {
		return v
	}
	return ""
}

// HealthCheck reports whether the broker connection is open.
func (c *Channel) HealthCheck() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close closes the broker connection.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	return nil
}

func (c *Channel) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}

	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	if time.Since(c.lastFailure) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}

func (c *Channel) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Channel) recordFailure() {
	failures := atomic.AddInt64(&c.failureCount, 1)

	c.cbMu.Lock()
	c.lastFailure = time.Now()
	c.cbMu.Unlock()

	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			slog.Warn("AMQP circuit breaker opened", "failures", failures)
		}
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}

	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
		"channel/connection is not open",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

var _ adapter.EventChannel = (*Channel)(nil)
