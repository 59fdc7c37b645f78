package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

const (
	// UnknownCategory is reported when there are no expenses.
	UnknownCategory = "Unknown"

	deficitInsight = "Warning: Your expenses exceed your income this period"
	savingsInsight = "Great! You're spending less than you earn"
)

var hundred = decimal.NewFromInt(100)

// buildInsights returns exactly three insights: savings rate, top expense
// category, and either a deficit warning or a savings message.
func buildInsights(totalIncome, totalExpense decimal.Decimal, breakdown *entity.CategoryBreakdown) []string {
	insights := make([]string, 0, 3)

	if totalIncome.IsZero() {
		insights = append(insights, "savings rate is N/A")
	} else {
		rate := totalIncome.Sub(totalExpense).Div(totalIncome).Mul(hundred)
		insights = append(insights, fmt.Sprintf("savings rate is %s%%", rate.StringFixed(1)))
	}

	topCategory, _, ok := breakdown.Expense.Max()
	if !ok {
		topCategory = UnknownCategory
	}
	insights = append(insights, "highest expense category is "+topCategory)

	if totalExpense.GreaterThan(totalIncome) {
		insights = append(insights, deficitInsight)
	} else {
		insights = append(insights, savingsInsight)
	}

	return insights
}
