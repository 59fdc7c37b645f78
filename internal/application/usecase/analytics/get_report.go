package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// GetReport summarizes the whole ledger with a breakdown, a 7-day trend and insights.
// period is a label echoed back in the report. It does not filter the data.
func (m *Materializer) GetReport(ctx context.Context, userID uuid.UUID, period string) (*entity.Report, error) {
	period = strings.TrimSpace(period)
	if period == "" {
		period = DefaultReportPeriod
	}
	if len(period) > MaxReportPeriodLength {
		return nil, domainerror.NewAnalyticsError(
			domainerror.ErrCodeInvalidReportPeriod,
			fmt.Sprintf("period must not exceed %d characters", MaxReportPeriodLength),
			domainerror.ErrInvalidReportPeriod,
		)
	}

	payload, err := m.load(ctx, userID, entity.SnapshotKindReport, period, func(ctx context.Context, today time.Time) (entity.SnapshotPayload, error) {
		transactions, err := m.transactionRepo.FindByUserChronological(ctx, userID)
		if err != nil {
			return nil, err
		}
		return buildReport(transactions, period, today), nil
	})
	if err != nil {
		return nil, err
	}
	return payload.(*entity.Report), nil
}

// buildReport derives every section from one ledger read so the sections agree.
func buildReport(transactions []*entity.Transaction, period string, today time.Time) *entity.Report {
	breakdown := buildCategoryBreakdown(transactions)
	totalIncome := breakdown.Income.Sum()
	totalExpense := breakdown.Expense.Sum()

	return &entity.Report{
		Period:            period,
		TotalIncome:       totalIncome,
		TotalExpense:      totalExpense,
		Balance:           totalIncome.Sub(totalExpense),
		CategoryBreakdown: breakdown,
		Insights:          buildInsights(totalIncome, totalExpense, breakdown),
		TrendData:         buildTrendData(transactions, today, reportTrendDays),
	}
}
