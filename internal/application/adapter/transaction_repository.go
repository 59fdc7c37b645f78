// Package adapter defines interfaces that will be implemented in the integration layer.
package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// TransactionFilter defines filter options for listing transactions.
// Type and the date range are mutually exclusive at the use case level.
type TransactionFilter struct {
	UserID    uuid.UUID
	Type      *entity.TransactionType
	StartDate *time.Time // Inclusive
	EndDate   *time.Time // Inclusive
}

// TransactionRepository defines the interface for ledger persistence operations.
//
// Every mutating method allocates the user's next event sequence inside the same
// store transaction as the write and returns it. Infrastructure failures are
// returned as-is; callers classify them.
type TransactionRepository interface {
	// Create persists a new transaction and sets its CreatedSeq.
	Create(ctx context.Context, transaction *entity.Transaction) (int64, error)

	// Update overwrites the mutable fields of an existing transaction.
	Update(ctx context.Context, transaction *entity.Transaction) (int64, error)

	// Delete removes a transaction owned by userID.
	Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) (int64, error)

	// FindByID retrieves a transaction by its ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error)

	// FindByFilter lists transactions newest day first, same-day entries in creation order.
	FindByFilter(ctx context.Context, filter TransactionFilter) ([]*entity.Transaction, error)

	// FindByUserChronological lists all of a user's transactions oldest first, in creation order.
	FindByUserChronological(ctx context.Context, userID uuid.UUID) ([]*entity.Transaction, error)
}
