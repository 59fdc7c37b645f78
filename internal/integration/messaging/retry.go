package messaging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

const (
	// DefaultRetryBaseDelay is the first redelivery delay.
	DefaultRetryBaseDelay = 1 * time.Second
	// DefaultRetryMaxDelay caps the redelivery delay.
	DefaultRetryMaxDelay = 30 * time.Second
)

// Backoff computes exponential redelivery delays.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before retry number attempt (0-based): Base doubled per attempt, capped at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	base, limit := b.Base, b.Max
	if base <= 0 {
		base = DefaultRetryBaseDelay
	}
	if limit <= 0 {
		limit = DefaultRetryMaxDelay
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return limit
	}
	delay := base << attempt
	if delay <= 0 || delay > limit {
		return limit
	}
	return delay
}

// Outcome is what a channel should do with a message after delivery.
type Outcome int

const (
	// OutcomeAck means the handler accepted the message.
	OutcomeAck Outcome = iota
	// OutcomeDrop means the message can never be processed and must be discarded.
	OutcomeDrop
	// OutcomeAbort means the context ended before the handler accepted the message.
	OutcomeAbort
)

// Deliver calls handler until it accepts msg, waiting backoff.Delay between attempts.
// Retrying in place keeps later messages on the same partition behind this one.
func Deliver(ctx context.Context, handler adapter.EventHandler, msg adapter.EventMessage, backoff Backoff) Outcome {
	for attempt := 0; ; attempt++ {
		err := handler(ctx, msg)
		if err == nil {
			return OutcomeAck
		}
		if errors.Is(err, domainerror.ErrMalformedEvent) {
			slog.Warn("Dropping malformed event message",
				"partition", msg.Partition,
				"key", msg.Key,
				"error", err,
			)
			return OutcomeDrop
		}

		delay := backoff.Delay(attempt)
		slog.Warn("Event handler failed, retrying",
			"partition", msg.Partition,
			"key", msg.Key,
			"attempt", attempt+1,
			"retry_in", delay,
			"error", err,
		)

		if err := SleepContext(ctx, delay); err != nil {
			return OutcomeAbort
		}
		msg.Redelivered = true
	}
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
