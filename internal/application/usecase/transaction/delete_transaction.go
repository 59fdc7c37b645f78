package transaction

import (
	"context"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// DeleteTransactionInput represents the input for transaction deletion.
type DeleteTransactionInput struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
}

// DeleteTransactionOutput represents the output of transaction deletion.
type DeleteTransactionOutput struct {
	Success bool
}

// DeleteTransactionUseCase handles transaction deletion logic.
type DeleteTransactionUseCase struct {
	transactionRepo adapter.TransactionRepository
	publisher       adapter.EventPublisher
	timeouts        Timeouts
}

// NewDeleteTransactionUseCase creates a new DeleteTransactionUseCase instance.
func NewDeleteTransactionUseCase(
	transactionRepo adapter.TransactionRepository,
	publisher adapter.EventPublisher,
	timeouts Timeouts,
) *DeleteTransactionUseCase {
	return &DeleteTransactionUseCase{
		transactionRepo: transactionRepo,
		publisher:       publisher,
		timeouts:        timeouts,
	}
}

// Execute removes an owned transaction and emits a DELETED event carrying its last state.
func (uc *DeleteTransactionUseCase) Execute(ctx context.Context, input DeleteTransactionInput) (*DeleteTransactionOutput, error) {
	transaction, err := findOwnedTransaction(ctx, uc.transactionRepo, uc.timeouts.Store, input.TransactionID, input.UserID, "delete")
	if err != nil {
		return nil, err
	}

	// Captured before the row disappears.
	snapshot := transaction.Clone()

	storeCtx, cancel := context.WithTimeout(ctx, uc.timeouts.Store)
	sequence, err := uc.transactionRepo.Delete(storeCtx, input.TransactionID, input.UserID)
	cancel()
	if err != nil {
		return nil, storeError(err, "failed to delete transaction")
	}

	publishEvent(ctx, uc.publisher, uc.timeouts.Publish, entity.NewDomainEvent(entity.EventTypeDeleted, snapshot, sequence))

	return &DeleteTransactionOutput{
		Success: true,
	}, nil
}
