package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

type snapshotRecord struct {
	UserID     string          `json:"userId"`
	Kind       string          `json:"kind"`
	Variant    string          `json:"variant"`
	Generation int64           `json:"generation"`
	AsOf       string          `json:"asOf"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Payload    json.RawMessage `json:"payload"`
}

type categoryAmount struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

type breakdownRecord struct {
	Income  []categoryAmount `json:"income"`
	Expense []categoryAmount `json:"expense"`
}

type trendRecord struct {
	Dates    []string          `json:"dates"`
	Income   []decimal.Decimal `json:"income"`
	Expenses []decimal.Decimal `json:"expenses"`
}

type reportRecord struct {
	Period            string           `json:"period"`
	TotalIncome       decimal.Decimal  `json:"totalIncome"`
	TotalExpense      decimal.Decimal  `json:"totalExpense"`
	Balance           decimal.Decimal  `json:"balance"`
	CategoryBreakdown *breakdownRecord `json:"categoryBreakdown"`
	Insights          []string         `json:"insights"`
	TrendData         *trendRecord     `json:"trendData"`
}

func encodeSnapshot(s *entity.AnalyticsSnapshot) ([]byte, error) {
	var payload any
	switch p := s.Payload.(type) {
	case *entity.CategoryBreakdown:
		payload = toBreakdownRecord(p)
	case *entity.TrendData:
		payload = toTrendRecord(p)
	case *entity.Report:
		payload = reportRecord{
			Period:            p.Period,
			TotalIncome:       p.TotalIncome,
			TotalExpense:      p.TotalExpense,
			Balance:           p.Balance,
			CategoryBreakdown: toBreakdownRecord(p.CategoryBreakdown),
			Insights:          p.Insights,
			TrendData:         toTrendRecord(p.TrendData),
		}
	default:
		return nil, fmt.Errorf("unsupported snapshot payload %T", s.Payload)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(snapshotRecord{
		UserID:     s.UserID.String(),
		Kind:       string(s.Kind),
		Variant:    s.Variant,
		Generation: s.Generation,
		AsOf:       s.AsOf.Format(entity.DateLayout),
		UpdatedAt:  s.UpdatedAt,
		Payload:    raw,
	})
}

func decodeSnapshot(data []byte) (*entity.AnalyticsSnapshot, error) {
	var rec snapshotRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(rec.UserID)
	if err != nil {
		return nil, fmt.Errorf("snapshot user id: %w", err)
	}
	asOf, err := time.Parse(entity.DateLayout, rec.AsOf)
	if err != nil {
		return nil, fmt.Errorf("snapshot as-of date: %w", err)
	}

	snapshot := &entity.AnalyticsSnapshot{
		UserID:     userID,
		Kind:       entity.SnapshotKind(rec.Kind),
		Variant:    rec.Variant,
		Generation: rec.Generation,
		AsOf:       asOf,
		UpdatedAt:  rec.UpdatedAt,
	}

	switch snapshot.Kind {
	case entity.SnapshotKindCategoryBreakdown:
		var p breakdownRecord
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return nil, err
		}
		snapshot.Payload = fromBreakdownRecord(&p)
	case entity.SnapshotKindTrend:
		var p trendRecord
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return nil, err
		}
		snapshot.Payload = fromTrendRecord(&p)
	case entity.SnapshotKindReport:
		var p reportRecord
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return nil, err
		}
		snapshot.Payload = &entity.Report{
			Period:            p.Period,
			TotalIncome:       p.TotalIncome,
			TotalExpense:      p.TotalExpense,
			Balance:           p.Balance,
			CategoryBreakdown: fromBreakdownRecord(p.CategoryBreakdown),
			Insights:          p.Insights,
			TrendData:         fromTrendRecord(p.TrendData),
		}
	default:
		return nil, fmt.Errorf("unknown snapshot kind %q", rec.Kind)
	}

	return snapshot, nil
}

func toCategoryAmounts(totals *entity.CategoryTotals) []categoryAmount {
	out := make([]categoryAmount, 0, totals.Len())
	for _, category := range totals.Categories() {
		amount, _ := totals.Get(category)
		out = append(out, categoryAmount{Category: category, Amount: amount})
	}
	return out
}

func toBreakdownRecord(b *entity.CategoryBreakdown) *breakdownRecord {
	if b == nil {
		return nil
	}
	return &breakdownRecord{
		Income:  toCategoryAmounts(&b.Income),
		Expense: toCategoryAmounts(&b.Expense),
	}
}

func fromBreakdownRecord(r *breakdownRecord) *entity.CategoryBreakdown {
	if r == nil {
		return nil
	}
	b := &entity.CategoryBreakdown{}
	for _, item := range r.Income {
		b.Income.Add(item.Category, item.Amount)
	}
	for _, item := range r.Expense {
		b.Expense.Add(item.Category, item.Amount)
	}
	return b
}

func toTrendRecord(t *entity.TrendData) *trendRecord {
	if t == nil {
		return nil
	}
	return &trendRecord{Dates: t.Dates, Income: t.Income, Expenses: t.Expenses}
}

func fromTrendRecord(r *trendRecord) *entity.TrendData {
	if r == nil {
		return nil
	}
	return &entity.TrendData{Dates: r.Dates, Income: r.Income, Expenses: r.Expenses}
}
