// Package messaging holds the wire format and delivery helpers shared by the event channels.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// EventMessage is the JSON body carried by every event channel.
type EventMessage struct {
	EventType     string    `json:"eventType"`
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"userId"`
	Type          string    `json:"type"`
	Category      string    `json:"category"`
	Amount        string    `json:"amount"`
	Date          string    `json:"date"`
	Sequence      int64     `json:"sequence"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// EncodeEvent serializes a domain event.
func EncodeEvent(event *entity.DomainEvent) ([]byte, error) {
	msg := EventMessage{
		EventType:     string(event.EventType),
		TransactionID: event.TransactionID.String(),
		UserID:        event.UserID.String(),
		Type:          string(event.Type),
		Category:      event.Category,
		Amount:        event.Amount.String(),
		Date:          event.Date.Format(entity.DateLayout),
		Sequence:      event.Sequence,
		OccurredAt:    event.OccurredAt.UTC(),
	}
	return json.Marshal(msg)
}

// DecodeEvent parses and validates a message body.
// Every failure wraps domainerror.ErrMalformedEvent.
func DecodeEvent(body []byte) (*entity.DomainEvent, error) {
	var msg EventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, domainerror.NewMalformedEventError(domainerror.ErrCodeUndecodableEvent, "event body is not valid JSON", err)
	}

	invalid := func(format string, args ...any) error {
		return domainerror.NewMalformedEventError(domainerror.ErrCodeInvalidEvent, fmt.Sprintf(format, args...), nil)
	}

	eventType := entity.EventType(msg.EventType)
	if !eventType.IsValid() {
		return nil, invalid("unknown event type %q", msg.EventType)
	}

	transactionID, err := uuid.Parse(msg.TransactionID)
	if err != nil || transactionID == uuid.Nil {
		return nil, invalid("invalid transaction id %q", msg.TransactionID)
	}

	userID, err := uuid.Parse(msg.UserID)
	if err != nil || userID == uuid.Nil {
		return nil, invalid("invalid user id %q", msg.UserID)
	}

	transactionType := entity.TransactionType(msg.Type)
	if !transactionType.IsValid() {
		return nil, invalid("unknown transaction type %q", msg.Type)
	}

	amount, err := decimal.NewFromString(msg.Amount)
	if err != nil || !amount.IsPositive() {
		return nil, invalid("invalid amount %q", msg.Amount)
	}

	date, err := time.Parse(entity.DateLayout, msg.Date)
	if err != nil {
		return nil, invalid("invalid date %q", msg.Date)
	}

	if msg.Sequence < 1 {
		return nil, invalid("sequence must be positive, got %d", msg.Sequence)
	}

	return &entity.DomainEvent{
		EventType:     eventType,
		TransactionID: transactionID,
		UserID:        userID,
		Type:          transactionType,
		Category:      msg.Category,
		Amount:        amount,
		Date:          date,
		Sequence:      msg.Sequence,
		OccurredAt:    msg.OccurredAt,
	}, nil
}
