package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType identifies a transaction lifecycle transition.
type EventType string

const (
	EventTypeCreated EventType = "CREATED"
	EventTypeUpdated EventType = "UPDATED"
	EventTypeDeleted EventType = "DELETED"
)

// IsValid reports whether e is a known lifecycle transition.
func (e EventType) IsValid() bool {
	switch e {
	case EventTypeCreated, EventTypeUpdated, EventTypeDeleted:
		return true
	}
	return false
}

// DomainEvent is the immutable record of one transaction lifecycle transition.
// Sequence is strictly increasing per user and assigned together with the write.
type DomainEvent struct {
	EventType     EventType
	TransactionID uuid.UUID
	UserID        uuid.UUID
	Type          TransactionType
	Category      string
	Amount        decimal.Decimal
	Date          time.Time
	Sequence      int64
	OccurredAt    time.Time
}

// NewDomainEvent captures the given transaction snapshot as an event.
func NewDomainEvent(eventType EventType, txn *Transaction, sequence int64) *DomainEvent {
	return &DomainEvent{
		EventType:     eventType,
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		Type:          txn.Type,
		Category:      txn.Category,
		Amount:        txn.Amount,
		Date:          txn.Date,
		Sequence:      sequence,
		OccurredAt:    time.Now().UTC(),
	}
}

// PartitionKey returns the key that keeps a user's events in order.
func (e *DomainEvent) PartitionKey() string {
	return e.UserID.String()
}
