// Package model defines database models for persistence layer.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// TransactionModel represents the transactions table in the database.
type TransactionModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index;index:idx_transactions_user_type,priority:1;index:idx_transactions_user_date,priority:1"`
	Type        string          `gorm:"type:varchar(10);not null;index:idx_transactions_user_type,priority:2"`
	Category    string          `gorm:"type:varchar(100);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Date        time.Time       `gorm:"type:date;not null;index:idx_transactions_user_date,priority:2"`
	Description string          `gorm:"type:varchar(255);not null;default:''"`
	Notes       string          `gorm:"type:text;not null;default:''"`
	CreatedSeq  int64           `gorm:"not null"`
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for the TransactionModel.
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToEntity converts a TransactionModel to a domain Transaction entity.
func (m *TransactionModel) ToEntity() *entity.Transaction {
	return &entity.Transaction{
		ID:          m.ID,
		UserID:      m.UserID,
		Type:        entity.TransactionType(m.Type),
		Category:    m.Category,
		Amount:      m.Amount,
		Date:        entity.DateOnly(m.Date),
		Description: m.Description,
		Notes:       m.Notes,
		CreatedSeq:  m.CreatedSeq,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// TransactionFromEntity converts a domain Transaction entity to a TransactionModel.
func TransactionFromEntity(e *entity.Transaction) *TransactionModel {
	return &TransactionModel{
		ID:          e.ID,
		UserID:      e.UserID,
		Type:        string(e.Type),
		Category:    e.Category,
		Amount:      e.Amount,
		Date:        entity.DateOnly(e.Date),
		Description: e.Description,
		Notes:       e.Notes,
		CreatedSeq:  e.CreatedSeq,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
