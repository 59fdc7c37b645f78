package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// Invalidate marks the given views stale for userID, or all views when kinds is empty.
// It is idempotent in effect: repeating it only forces another recompute.
func (m *Materializer) Invalidate(ctx context.Context, userID uuid.UUID, kinds ...entity.SnapshotKind) error {
	if len(kinds) == 0 {
		kinds = entity.AllSnapshotKinds()
	}

	opCtx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()

	if err := m.snapshots.Invalidate(opCtx, userID, kinds...); err != nil {
		return domainerror.NewAnalyticsUnavailableError(fmt.Errorf("failed to invalidate snapshots: %w", err))
	}
	return nil
}
