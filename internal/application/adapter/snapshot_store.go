package adapter

import (
	"context"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// SnapshotStore persists derived analytics snapshots and their generation counters.
type SnapshotStore interface {
	// Get returns the stored snapshot or nil when none exists.
	Get(ctx context.Context, userID uuid.UUID, kind entity.SnapshotKind, variant string) (*entity.AnalyticsSnapshot, error)

	// Put stores a snapshot, replacing any previous one for the same key.
	Put(ctx context.Context, snapshot *entity.AnalyticsSnapshot) error

	// Generation returns the current generation for (userID, kind). Zero if never invalidated.
	Generation(ctx context.Context, userID uuid.UUID, kind entity.SnapshotKind) (int64, error)

	// Invalidate advances the generation of each kind. It never moves a generation backwards.
	Invalidate(ctx context.Context, userID uuid.UUID, kinds ...entity.SnapshotKind) error

	HealthCheck() bool
}
