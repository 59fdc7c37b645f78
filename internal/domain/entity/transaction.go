// Package entity defines the core business entities for the domain layer.
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used on every external surface.
const DateLayout = "2006-01-02"

// TransactionType represents the type of transaction (income or expense).
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// IsValid reports whether t is one of the two known variants.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// ParseTransactionType converts user input into a TransactionType, ignoring case.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.IsValid()
}

// Transaction represents a single entry in a user's ledger.
type Transaction struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Type        TransactionType
	Category    string
	Amount      decimal.Decimal // Always positive; the sign lives in Type
	Date        time.Time       // Calendar day, UTC midnight
	Description string
	Notes       string
	CreatedSeq  int64 // Assigned by the ledger store, orders entries created on the same day
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTransaction creates a new Transaction entity.
func NewTransaction(
	userID uuid.UUID,
	transactionType TransactionType,
	category string,
	amount decimal.Decimal,
	date time.Time,
	description string,
	notes string,
) *Transaction {
	now := time.Now().UTC()

	return &Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        transactionType,
		Category:    category,
		Amount:      amount,
		Date:        DateOnly(date),
		Description: description,
		Notes:       notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsOwnedBy reports whether the transaction belongs to userID.
func (t *Transaction) IsOwnedBy(userID uuid.UUID) bool {
	return t.UserID == userID
}

// Overwrite replaces the mutable fields and refreshes UpdatedAt.
func (t *Transaction) Overwrite(
	transactionType TransactionType,
	category string,
	amount decimal.Decimal,
	date time.Time,
	description string,
	notes string,
) {
	t.Type = transactionType
	t.Category = category
	t.Amount = amount
	t.Date = DateOnly(date)
	t.Description = description
	t.Notes = notes
	t.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy that is safe to hand to another goroutine.
func (t *Transaction) Clone() *Transaction {
	c := *t
	return &c
}

// DateOnly truncates t to its calendar day in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// TransactionStats represents aggregated totals for a user's ledger.
type TransactionStats struct {
	TotalIncome      decimal.Decimal
	TotalExpenses    decimal.Decimal
	Balance          decimal.Decimal
	TransactionCount int
}

// ComputeStats sums the given transactions.
func ComputeStats(transactions []*Transaction) TransactionStats {
	stats := TransactionStats{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}

	for _, t := range transactions {
		switch t.Type {
		case TransactionTypeIncome:
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
		case TransactionTypeExpense:
			stats.TotalExpenses = stats.TotalExpenses.Add(t.Amount)
		}
	}

	stats.Balance = stats.TotalIncome.Sub(stats.TotalExpenses)
	stats.TransactionCount = len(transactions)
	return stats
}
