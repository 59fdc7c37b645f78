package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// GetCategoryBreakdown returns per-category income and expense sums over the whole ledger.
func (m *Materializer) GetCategoryBreakdown(ctx context.Context, userID uuid.UUID) (*entity.CategoryBreakdown, error) {
	payload, err := m.load(ctx, userID, entity.SnapshotKindCategoryBreakdown, "", func(ctx context.Context, _ time.Time) (entity.SnapshotPayload, error) {
		transactions, err := m.transactionRepo.FindByUserChronological(ctx, userID)
		if err != nil {
			return nil, err
		}
		return buildCategoryBreakdown(transactions), nil
	})
	if err != nil {
		return nil, err
	}
	return payload.(*entity.CategoryBreakdown), nil
}

// buildCategoryBreakdown expects transactions in ledger order so category order is stable.
func buildCategoryBreakdown(transactions []*entity.Transaction) *entity.CategoryBreakdown {
	breakdown := &entity.CategoryBreakdown{}
	for _, t := range transactions {
		switch t.Type {
		case entity.TransactionTypeIncome:
			breakdown.Income.Add(t.Category, t.Amount)
		case entity.TransactionTypeExpense:
			breakdown.Expense.Add(t.Category, t.Amount)
		}
	}
	return breakdown
}
