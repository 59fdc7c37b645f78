package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SnapshotKind identifies one of the derived analytics views.
type SnapshotKind string

const (
	SnapshotKindCategoryBreakdown SnapshotKind = "CATEGORY_BREAKDOWN"
	SnapshotKindTrend             SnapshotKind = "TREND"
	SnapshotKindReport            SnapshotKind = "REPORT"
)

// AllSnapshotKinds lists every kind a ledger change makes stale.
func AllSnapshotKinds() []SnapshotKind {
	return []SnapshotKind{
		SnapshotKindCategoryBreakdown,
		SnapshotKindTrend,
		SnapshotKindReport,
	}
}

// DependsOnToday reports whether the view is anchored to the current day.
func (k SnapshotKind) DependsOnToday() bool {
	return k == SnapshotKindTrend || k == SnapshotKindReport
}

// SnapshotPayload is implemented only by *CategoryBreakdown, *TrendData and *Report.
type SnapshotPayload interface {
	SnapshotKind() SnapshotKind
	isSnapshotPayload()
}

// AnalyticsSnapshot is a cached, derived view of a user's ledger.
// It is valid only while Generation matches the current generation for its kind.
type AnalyticsSnapshot struct {
	UserID     uuid.UUID
	Kind       SnapshotKind
	Variant    string
	Generation int64
	AsOf       time.Time // Calendar day the payload was computed for
	UpdatedAt  time.Time
	Payload    SnapshotPayload
}

// IsCurrent reports whether the snapshot can still be served.
func (s *AnalyticsSnapshot) IsCurrent(generation int64, today time.Time) bool {
	if s == nil || s.Payload == nil || s.Generation != generation {
		return false
	}
	if s.Kind.DependsOnToday() && !s.AsOf.Equal(DateOnly(today)) {
		return false
	}
	return true
}

// CategoryTotals maps category to summed amount, keeping first-insertion order.
type CategoryTotals struct {
	order  []string
	totals map[string]decimal.Decimal
}

// Add accumulates amount into category.
func (c *CategoryTotals) Add(category string, amount decimal.Decimal) {
	if c.totals == nil {
		c.totals = make(map[string]decimal.Decimal)
	}
	current, exists := c.totals[category]
	if !exists {
		c.order = append(c.order, category)
		current = decimal.Zero
	}
	c.totals[category] = current.Add(amount)
}

// Get returns the total for category.
func (c *CategoryTotals) Get(category string) (decimal.Decimal, bool) {
	v, ok := c.totals[category]
	return v, ok
}

// Categories returns categories in first-insertion order.
func (c *CategoryTotals) Categories() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of categories.
func (c *CategoryTotals) Len() int {
	return len(c.order)
}

// Sum returns the total across all categories.
func (c *CategoryTotals) Sum() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range c.totals {
		sum = sum.Add(v)
	}
	return sum
}

// Max returns the category with the largest total. Ties go to the earliest category.
func (c *CategoryTotals) Max() (string, decimal.Decimal, bool) {
	if len(c.order) == 0 {
		return "", decimal.Zero, false
	}
	best := c.order[0]
	bestAmount := c.totals[best]
	for _, category := range c.order[1:] {
		if c.totals[category].GreaterThan(bestAmount) {
			best = category
			bestAmount = c.totals[category]
		}
	}
	return best, bestAmount, true
}

// CategoryBreakdown holds per-category sums split by transaction type.
type CategoryBreakdown struct {
	Income  CategoryTotals
	Expense CategoryTotals
}

// SnapshotKind implements SnapshotPayload.
func (*CategoryBreakdown) SnapshotKind() SnapshotKind { return SnapshotKindCategoryBreakdown }
func (*CategoryBreakdown) isSnapshotPayload()         {}

// TrendData holds parallel daily series, oldest day first.
type TrendData struct {
	Dates    []string
	Income   []decimal.Decimal
	Expenses []decimal.Decimal
}

// SnapshotKind implements SnapshotPayload.
func (*TrendData) SnapshotKind() SnapshotKind { return SnapshotKindTrend }
func (*TrendData) isSnapshotPayload()         {}

// Len returns the number of days in the series.
func (t *TrendData) Len() int {
	return len(t.Dates)
}

// Report summarizes a user's ledger.
type Report struct {
	Period            string
	TotalIncome       decimal.Decimal
	TotalExpense      decimal.Decimal
	Balance           decimal.Decimal
	CategoryBreakdown *CategoryBreakdown
	Insights          []string
	TrendData         *TrendData
}

// SnapshotKind implements SnapshotPayload.
func (*Report) SnapshotKind() SnapshotKind { return SnapshotKindReport }
func (*Report) isSnapshotPayload()         {}
