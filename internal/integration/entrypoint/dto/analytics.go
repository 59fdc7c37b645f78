package dto

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// CategoryAmounts serializes category totals as a JSON object whose keys keep
// first-appearance order.
type CategoryAmounts struct {
	totals *entity.CategoryTotals
}

// MarshalJSON implements json.Marshaler.
func (c CategoryAmounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if c.totals != nil {
		for i, category := range c.totals.Categories() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(category)
			if err != nil {
				return nil, err
			}
			amount, _ := c.totals.Get(category)
			value, err := json.Marshal(amount.StringFixed(2))
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CategoryBreakdownResponse represents per-category totals split by type.
type CategoryBreakdownResponse struct {
	Income  CategoryAmounts `json:"income"`
	Expense CategoryAmounts `json:"expense"`
}

// TrendDataResponse represents parallel daily series, oldest day first.
type TrendDataResponse struct {
	Dates    []string `json:"dates"`
	Income   []string `json:"income"`
	Expenses []string `json:"expenses"`
}

// ReportResponse represents a financial report.
type ReportResponse struct {
	Period            string                    `json:"period"`
	TotalIncome       string                    `json:"totalIncome"`
	TotalExpense      string                    `json:"totalExpense"`
	Balance           string                    `json:"balance"`
	CategoryBreakdown CategoryBreakdownResponse `json:"categoryBreakdown"`
	Insights          []string                  `json:"insights"`
	TrendData         TrendDataResponse         `json:"trendData"`
}

// ToCategoryBreakdownResponse converts a breakdown to its DTO.
func ToCategoryBreakdownResponse(b *entity.CategoryBreakdown) CategoryBreakdownResponse {
	if b == nil {
		return CategoryBreakdownResponse{}
	}
	return CategoryBreakdownResponse{
		Income:  CategoryAmounts{totals: &b.Income},
		Expense: CategoryAmounts{totals: &b.Expense},
	}
}

// ToTrendDataResponse converts trend data to its DTO.
func ToTrendDataResponse(t *entity.TrendData) TrendDataResponse {
	if t == nil {
		return TrendDataResponse{Dates: []string{}, Income: []string{}, Expenses: []string{}}
	}
	dates := make([]string, len(t.Dates))
	copy(dates, t.Dates)
	return TrendDataResponse{
		Dates:    dates,
		Income:   fixed(t.Income),
		Expenses: fixed(t.Expenses),
	}
}

// ToReportResponse converts a report to its DTO.
func ToReportResponse(r *entity.Report) ReportResponse {
	insights := make([]string, len(r.Insights))
	copy(insights, r.Insights)
	return ReportResponse{
		Period:            r.Period,
		TotalIncome:       r.TotalIncome.StringFixed(2),
		TotalExpense:      r.TotalExpense.StringFixed(2),
		Balance:           r.Balance.StringFixed(2),
		CategoryBreakdown: ToCategoryBreakdownResponse(r.CategoryBreakdown),
		Insights:          insights,
		TrendData:         ToTrendDataResponse(r.TrendData),
	}
}

func fixed(values []decimal.Decimal) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.StringFixed(2)
	}
	return out
}
