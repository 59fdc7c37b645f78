// Package analytics contains the analytics materializer: derived, cached views of a user's ledger.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

const (
	// DefaultTrendDays is the trend window used when the caller does not pick one.
	DefaultTrendDays = 7
	// DefaultReportPeriod is the report label used when the caller does not pick one.
	DefaultReportPeriod = "monthly"
	// MaxReportPeriodLength bounds the opaque report label.
	MaxReportPeriodLength = 32

	reportTrendDays = 7
)

// Config holds materializer settings.
type Config struct {
	SnapshotTTL  time.Duration
	MaxTrendDays int
	StoreTimeout time.Duration
}

// Materializer serves analytics views from cached snapshots, recomputing from
// the ledger when a snapshot is missing or stale. It is the only writer of
// the snapshot store.
type Materializer struct {
	transactionRepo adapter.TransactionRepository
	snapshots       adapter.SnapshotStore
	clock           adapter.Clock
	cfg             Config
	group           singleflight.Group
}

// NewMaterializer creates a new Materializer instance.
func NewMaterializer(
	transactionRepo adapter.TransactionRepository,
	snapshots adapter.SnapshotStore,
	clock adapter.Clock,
	cfg Config,
) *Materializer {
	return &Materializer{
		transactionRepo: transactionRepo,
		snapshots:       snapshots,
		clock:           clock,
		cfg:             cfg,
	}
}

type computeFunc func(ctx context.Context, today time.Time) (entity.SnapshotPayload, error)

// load returns a current snapshot payload or recomputes and stores one.
// Concurrent loads of the same view share one computation.
func (m *Materializer) load(
	ctx context.Context,
	userID uuid.UUID,
	kind entity.SnapshotKind,
	variant string,
	compute computeFunc,
) (entity.SnapshotPayload, error) {
	key := fmt.Sprintf("%s:%s:%s", userID, kind, variant)

	v, err, shared := m.group.Do(key, func() (interface{}, error) {
		// Followers share this call, so the leader's cancellation must not fail them.
		opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.StoreTimeout)
		defer cancel()
		return m.loadOnce(opCtx, userID, kind, variant, compute)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Shared analytics recomputation", "user_id", userID, "kind", kind, "variant", variant)
	}
	return v.(entity.SnapshotPayload), nil
}

func (m *Materializer) loadOnce(
	ctx context.Context,
	userID uuid.UUID,
	kind entity.SnapshotKind,
	variant string,
	compute computeFunc,
) (entity.SnapshotPayload, error) {
	today := entity.DateOnly(m.clock.Now())

	// The generation is read before the ledger. A snapshot stored under it can
	// never mask an invalidation that lands during the recompute.
	cacheUsable := true
	generation, err := m.snapshots.Generation(ctx, userID, kind)
	if err != nil {
		slog.Warn("Snapshot store unavailable, serving from ledger",
			"user_id", userID,
			"kind", kind,
			"error", err,
		)
		cacheUsable = false
	}

	if cacheUsable {
		snapshot, err := m.snapshots.Get(ctx, userID, kind, variant)
		if err != nil {
			slog.Warn("Failed to read analytics snapshot",
				"user_id", userID,
				"kind", kind,
				"error", err,
			)
		} else if snapshot.IsCurrent(generation, today) {
			return snapshot.Payload, nil
		}
	}

	payload, err := compute(ctx, today)
	if err != nil {
		return nil, domainerror.NewAnalyticsUnavailableError(fmt.Errorf("failed to compute %s: %w", kind, err))
	}

	if cacheUsable {
		snapshot := &entity.AnalyticsSnapshot{
			UserID:     userID,
			Kind:       kind,
			Variant:    variant,
			Generation: generation,
			AsOf:       today,
			UpdatedAt:  m.clock.Now().UTC(),
			Payload:    payload,
		}
		if err := m.snapshots.Put(ctx, snapshot); err != nil {
			slog.Warn("Failed to store analytics snapshot",
				"user_id", userID,
				"kind", kind,
				"error", err,
			)
		}
	}

	return payload, nil
}
