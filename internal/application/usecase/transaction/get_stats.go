package transaction

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// GetStatsInput represents the input for ledger statistics.
type GetStatsInput struct {
	UserID uuid.UUID
}

// GetStatsOutput represents totals computed over the caller's whole ledger.
type GetStatsOutput struct {
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	Balance          decimal.Decimal
	TransactionCount int
}

// GetStatsUseCase computes ledger totals. Results are never cached.
type GetStatsUseCase struct {
	transactionRepo adapter.TransactionRepository
	timeouts        Timeouts
}

// NewGetStatsUseCase creates a new GetStatsUseCase instance.
func NewGetStatsUseCase(transactionRepo adapter.TransactionRepository, timeouts Timeouts) *GetStatsUseCase {
	return &GetStatsUseCase{
		transactionRepo: transactionRepo,
		timeouts:        timeouts,
	}
}

// Execute recomputes the totals from the ledger store.
func (uc *GetStatsUseCase) Execute(ctx context.Context, input GetStatsInput) (*GetStatsOutput, error) {
	storeCtx, cancel := context.WithTimeout(ctx, uc.timeouts.Store)
	defer cancel()

	transactions, err := uc.transactionRepo.FindByFilter(storeCtx, adapter.TransactionFilter{UserID: input.UserID})
	if err != nil {
		return nil, storeError(err, "failed to compute transaction stats")
	}

	stats := entity.ComputeStats(transactions)
	return &GetStatsOutput{
		TotalIncome:      stats.TotalIncome,
		TotalExpenses:    stats.TotalExpenses,
		Balance:          stats.Balance,
		TransactionCount: stats.TransactionCount,
	}, nil
}
