package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// GetTrendData returns daily income and expense sums for the last days days, ending today.
func (m *Materializer) GetTrendData(ctx context.Context, userID uuid.UUID, days int) (*entity.TrendData, error) {
	if days < 1 || days > m.cfg.MaxTrendDays {
		return nil, domainerror.NewAnalyticsError(
			domainerror.ErrCodeInvalidTrendDays,
			fmt.Sprintf("days must be between 1 and %d", m.cfg.MaxTrendDays),
			domainerror.ErrInvalidTrendDays,
		)
	}

	payload, err := m.load(ctx, userID, entity.SnapshotKindTrend, strconv.Itoa(days), func(ctx context.Context, today time.Time) (entity.SnapshotPayload, error) {
		start := today.AddDate(0, 0, -(days - 1))
		transactions, err := m.transactionRepo.FindByFilter(ctx, adapter.TransactionFilter{
			UserID:    userID,
			StartDate: &start,
			EndDate:   &today,
		})
		if err != nil {
			return nil, err
		}
		return buildTrendData(transactions, today, days), nil
	})
	if err != nil {
		return nil, err
	}
	return payload.(*entity.TrendData), nil
}

// buildTrendData buckets transactions into days consecutive days ending at today.
// Days without transactions are zero, and transactions outside the window are ignored.
func buildTrendData(transactions []*entity.Transaction, today time.Time, days int) *entity.TrendData {
	type bucket struct {
		income  decimal.Decimal
		expense decimal.Decimal
	}

	byDay := make(map[string]*bucket)
	for _, t := range transactions {
		key := t.Date.Format(entity.DateLayout)
		b, ok := byDay[key]
		if !ok {
			b = &bucket{income: decimal.Zero, expense: decimal.Zero}
			byDay[key] = b
		}
		switch t.Type {
		case entity.TransactionTypeIncome:
			b.income = b.income.Add(t.Amount)
		case entity.TransactionTypeExpense:
			b.expense = b.expense.Add(t.Amount)
		}
	}

	trend := &entity.TrendData{
		Dates:    make([]string, 0, days),
		Income:   make([]decimal.Decimal, 0, days),
		Expenses: make([]decimal.Decimal, 0, days),
	}

	start := entity.DateOnly(today).AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		key := start.AddDate(0, 0, i).Format(entity.DateLayout)
		trend.Dates = append(trend.Dates, key)
		if b, ok := byDay[key]; ok {
			trend.Income = append(trend.Income, b.income)
			trend.Expenses = append(trend.Expenses, b.expense)
		} else {
			trend.Income = append(trend.Income, decimal.Zero)
			trend.Expenses = append(trend.Expenses, decimal.Zero)
		}
	}

	return trend
}
