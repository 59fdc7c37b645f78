package model

import "github.com/google/uuid"

// LedgerSequenceModel holds the last event sequence issued for a user.
type LedgerSequenceModel struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Value  int64     `gorm:"not null"`
}

// TableName returns the table name for the LedgerSequenceModel.
func (LedgerSequenceModel) TableName() string {
	return "ledger_sequences"
}

// AllModels lists every model managed by auto-migration.
func AllModels() []interface{} {
	return []interface{}{
		&TransactionModel{},
		&LedgerSequenceModel{},
	}
}
