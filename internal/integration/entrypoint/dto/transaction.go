// Package dto defines data transfer objects for API requests and responses.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/application/usecase/transaction"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// TransactionRequest is the body of POST /transactions and PUT /transactions/:id.
// Required fields are pointers so an absent field can be told apart from a zero value.
type TransactionRequest struct {
	Type        *string          `json:"type"`
	Category    *string          `json:"category"`
	Amount      *decimal.Decimal `json:"amount"`
	Date        *string          `json:"date"`
	Description string           `json:"description"`
	Notes       string           `json:"notes"`
}

// MissingFields lists the required fields absent from the request.
func (r *TransactionRequest) MissingFields() []string {
	var missing []string
	if r.Type == nil {
		missing = append(missing, "type")
	}
	if r.Category == nil {
		missing = append(missing, "category")
	}
	if r.Amount == nil {
		missing = append(missing, "amount")
	}
	if r.Date == nil {
		missing = append(missing, "date")
	}
	return missing
}

// TransactionResponse represents a single transaction in API responses.
type TransactionResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Amount      string    `json:"amount"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TransactionStatsResponse represents ledger totals.
type TransactionStatsResponse struct {
	TotalIncome      string `json:"totalIncome"`
	TotalExpenses    string `json:"totalExpenses"`
	Balance          string `json:"balance"`
	TransactionCount int    `json:"transactionCount"`
}

// ToTransactionResponse converts a TransactionOutput to a TransactionResponse DTO.
func ToTransactionResponse(txn *transaction.TransactionOutput) TransactionResponse {
	return TransactionResponse{
		ID:          txn.ID.String(),
		UserID:      txn.UserID.String(),
		Type:        string(txn.Type),
		Category:    txn.Category,
		Amount:      txn.Amount.StringFixed(2),
		Date:        txn.Date.Format(entity.DateLayout),
		Description: txn.Description,
		Notes:       txn.Notes,
		CreatedAt:   txn.CreatedAt,
		UpdatedAt:   txn.UpdatedAt,
	}
}

// ToTransactionListResponse converts a ListTransactionsOutput to a JSON array.
func ToTransactionListResponse(output *transaction.ListTransactionsOutput) []TransactionResponse {
	transactions := make([]TransactionResponse, len(output.Transactions))
	for i, txn := range output.Transactions {
		transactions[i] = ToTransactionResponse(txn)
	}
	return transactions
}

// ToTransactionStatsResponse converts GetStatsOutput to its DTO.
func ToTransactionStatsResponse(output *transaction.GetStatsOutput) TransactionStatsResponse {
	return TransactionStatsResponse{
		TotalIncome:      output.TotalIncome.StringFixed(2),
		TotalExpenses:    output.TotalExpenses.StringFixed(2),
		Balance:          output.Balance.StringFixed(2),
		TransactionCount: output.TransactionCount,
	}
}
