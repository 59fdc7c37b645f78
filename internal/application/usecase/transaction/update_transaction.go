package transaction

import (
	"context"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// UpdateTransactionInput represents the input for transaction update.
type UpdateTransactionInput struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
	Draft         TransactionDraft
}

// UpdateTransactionOutput represents the output of transaction update.
type UpdateTransactionOutput struct {
	Transaction *TransactionOutput
}

// UpdateTransactionUseCase handles transaction update logic.
type UpdateTransactionUseCase struct {
	transactionRepo adapter.TransactionRepository
	publisher       adapter.EventPublisher
	timeouts        Timeouts
}

// NewUpdateTransactionUseCase creates a new UpdateTransactionUseCase instance.
func NewUpdateTransactionUseCase(
	transactionRepo adapter.TransactionRepository,
	publisher adapter.EventPublisher,
	timeouts Timeouts,
) *UpdateTransactionUseCase {
	return &UpdateTransactionUseCase{
		transactionRepo: transactionRepo,
		publisher:       publisher,
		timeouts:        timeouts,
	}
}

// Execute overwrites the mutable fields of an owned transaction and emits an UPDATED event.
func (uc *UpdateTransactionUseCase) Execute(ctx context.Context, input UpdateTransactionInput) (*UpdateTransactionOutput, error) {
	transaction, err := findOwnedTransaction(ctx, uc.transactionRepo, uc.timeouts.Store, input.TransactionID, input.UserID, "update")
	if err != nil {
		return nil, err
	}

	draft := input.Draft
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	transaction.Overwrite(
		draft.Type,
		draft.Category,
		draft.Amount,
		draft.Date,
		draft.Description,
		draft.Notes,
	)

	storeCtx, cancel := context.WithTimeout(ctx, uc.timeouts.Store)
	sequence, err := uc.transactionRepo.Update(storeCtx, transaction)
	cancel()
	if err != nil {
		return nil, storeError(err, "failed to update transaction")
	}

	publishEvent(ctx, uc.publisher, uc.timeouts.Publish, entity.NewDomainEvent(entity.EventTypeUpdated, transaction, sequence))

	return &UpdateTransactionOutput{
		Transaction: toTransactionOutput(transaction),
	}, nil
}
