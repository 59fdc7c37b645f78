package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// ListTransactionsInput represents the input for listing transactions.
// At most one of Type or the date range may be set.
type ListTransactionsInput struct {
	UserID    uuid.UUID
	Type      *entity.TransactionType
	StartDate *time.Time
	EndDate   *time.Time
}

// ListTransactionsOutput represents the output of listing transactions.
type ListTransactionsOutput struct {
	Transactions []*TransactionOutput
}

// ListTransactionsUseCase handles transaction listing logic.
type ListTransactionsUseCase struct {
	transactionRepo adapter.TransactionRepository
	timeouts        Timeouts
}

// NewListTransactionsUseCase creates a new ListTransactionsUseCase instance.
func NewListTransactionsUseCase(transactionRepo adapter.TransactionRepository, timeouts Timeouts) *ListTransactionsUseCase {
	return &ListTransactionsUseCase{
		transactionRepo: transactionRepo,
		timeouts:        timeouts,
	}
}

// Execute lists the caller's transactions, newest day first.
func (uc *ListTransactionsUseCase) Execute(ctx context.Context, input ListTransactionsInput) (*ListTransactionsOutput, error) {
	filter, err := buildFilter(input)
	if err != nil {
		return nil, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, uc.timeouts.Store)
	defer cancel()

	transactions, err := uc.transactionRepo.FindByFilter(storeCtx, filter)
	if err != nil {
		return nil, storeError(err, "failed to list transactions")
	}

	output := &ListTransactionsOutput{
		Transactions: make([]*TransactionOutput, 0, len(transactions)),
	}
	for _, t := range transactions {
		output.Transactions = append(output.Transactions, toTransactionOutput(t))
	}

	return output, nil
}

func buildFilter(input ListTransactionsInput) (adapter.TransactionFilter, error) {
	filter := adapter.TransactionFilter{UserID: input.UserID}

	hasRange := input.StartDate != nil || input.EndDate != nil
	if input.Type != nil && hasRange {
		return filter, domainerror.NewTransactionError(
			domainerror.ErrCodeInvalidListFilter,
			"type and date range filters cannot be combined",
			domainerror.ErrInvalidListFilter,
		)
	}

	if input.Type != nil {
		if !input.Type.IsValid() {
			return filter, domainerror.NewTransactionError(
				domainerror.ErrCodeInvalidTransactionType,
				"transaction type must be 'INCOME' or 'EXPENSE'",
				domainerror.ErrInvalidTransactionType,
			)
		}
		filter.Type = input.Type
		return filter, nil
	}

	if hasRange {
		if input.StartDate == nil || input.EndDate == nil {
			return filter, domainerror.NewTransactionError(
				domainerror.ErrCodeInvalidListFilter,
				"both startDate and endDate are required for a date range",
				domainerror.ErrInvalidListFilter,
			)
		}
		start := entity.DateOnly(*input.StartDate)
		end := entity.DateOnly(*input.EndDate)
		if end.Before(start) {
			return filter, domainerror.NewTransactionError(
				domainerror.ErrCodeInvalidListFilter,
				"endDate must not be before startDate",
				domainerror.ErrInvalidListFilter,
			)
		}
		filter.StartDate = &start
		filter.EndDate = &end
	}

	return filter, nil
}
