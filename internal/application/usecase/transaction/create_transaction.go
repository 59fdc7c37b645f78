// Package transaction contains transaction ledger use cases.
package transaction

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// CreateTransactionInput represents the input for transaction creation.
type CreateTransactionInput struct {
	UserID uuid.UUID
	Draft  TransactionDraft
}

// CreateTransactionOutput represents the output of transaction creation.
type CreateTransactionOutput struct {
	Transaction *TransactionOutput
}

// CreateTransactionUseCase handles transaction creation logic.
type CreateTransactionUseCase struct {
	transactionRepo adapter.TransactionRepository
	publisher       adapter.EventPublisher
	timeouts        Timeouts
}

// NewCreateTransactionUseCase creates a new CreateTransactionUseCase instance.
func NewCreateTransactionUseCase(
	transactionRepo adapter.TransactionRepository,
	publisher adapter.EventPublisher,
	timeouts Timeouts,
) *CreateTransactionUseCase {
	return &CreateTransactionUseCase{
		transactionRepo: transactionRepo,
		publisher:       publisher,
		timeouts:        timeouts,
	}
}

// Execute validates the draft, persists the transaction and emits a CREATED event.
func (uc *CreateTransactionUseCase) Execute(ctx context.Context, input CreateTransactionInput) (*CreateTransactionOutput, error) {
	draft := input.Draft
	if err := validateDraft(&draft); err != nil {
		return nil, err
	}

	transaction := entity.NewTransaction(
		input.UserID,
		draft.Type,
		draft.Category,
		draft.Amount,
		draft.Date,
		draft.Description,
		draft.Notes,
	)

	storeCtx, cancel := context.WithTimeout(ctx, uc.timeouts.Store)
	sequence, err := uc.transactionRepo.Create(storeCtx, transaction)
	cancel()
	if err != nil {
		return nil, domainerror.NewLedgerUnavailableError(fmt.Errorf("failed to create transaction: %w", err))
	}

	publishEvent(ctx, uc.publisher, uc.timeouts.Publish, entity.NewDomainEvent(entity.EventTypeCreated, transaction, sequence))

	return &CreateTransactionOutput{
		Transaction: toTransactionOutput(transaction),
	}, nil
}
