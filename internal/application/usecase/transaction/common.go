package transaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

const (
	// MaxCategoryLength is the maximum allowed length for category names.
	MaxCategoryLength = 100
	// MaxDescriptionLength is the maximum allowed length for transaction descriptions.
	MaxDescriptionLength = 255
	// MaxNotesLength is the maximum allowed length for transaction notes.
	MaxNotesLength = 1000
	// AmountScale is the number of decimal places the ledger store keeps.
	AmountScale = 2
)

// MaxAmount is the largest amount that fits the ledger's DECIMAL(15,2) column.
var MaxAmount = decimal.RequireFromString("9999999999999.99")

// Timeouts bounds every ledger store call and every event publish.
type Timeouts struct {
	Store   time.Duration
	Publish time.Duration
}

// TransactionDraft holds the caller-supplied fields of a transaction.
type TransactionDraft struct {
	Type        entity.TransactionType
	Category    string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Notes       string
}

// TransactionOutput represents a transaction in use case output.
type TransactionOutput struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Type        entity.TransactionType
	Category    string
	Amount      decimal.Decimal
	Date        time.Time
	Description string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func toTransactionOutput(t *entity.Transaction) *TransactionOutput {
	return &TransactionOutput{
		ID:          t.ID,
		UserID:      t.UserID,
		Type:        t.Type,
		Category:    t.Category,
		Amount:      t.Amount,
		Date:        t.Date,
		Description: t.Description,
		Notes:       t.Notes,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// validateDraft checks a draft before any store access.
func validateDraft(draft *TransactionDraft) error {
	if !draft.Type.IsValid() {
		return domainerror.NewTransactionError(
			domainerror.ErrCodeInvalidTransactionType,
			"transaction type must be 'INCOME' or 'EXPENSE'",
			domainerror.ErrInvalidTransactionType,
		)
	}

	if !draft.Amount.IsPositive() {
		return domainerror.NewTransactionError(
			domainerror.ErrCodeInvalidTransactionAmount,
			"amount must be greater than zero",
			domainerror.ErrInvalidTransactionAmount,
		)
	}

	if !draft.Amount.Equal(draft.Amount.Round(AmountScale)) || draft.Amount.GreaterThan(MaxAmount) {
		return domainerror.NewTransactionError(
			domainerror.ErrCodeInvalidTransactionAmount,
			fmt.Sprintf("amount must have at most %d decimal places and not exceed %s", AmountScale, MaxAmount.StringFixed(AmountScale)),
			domainerror.ErrInvalidTransactionAmount,
		)
	}

	if draft.Date.IsZero() {
		return domainerror.NewTransactionError(
			domainerror.ErrCodeInvalidTransactionDate,
			"date is required",
			domainerror.ErrInvalidTransactionDate,
		)
	}

	draft.Category = strings.TrimSpace(draft.Category)
	if draft.Category == "" || len(draft.Category) > MaxCategoryLength {
		return domainerror.NewTransactionError(
			domainerror.ErrCodeInvalidCategory,
			fmt.Sprintf("category is required and must not exceed %d characters", MaxCategoryLength),
			domainerror.ErrInvalidCategory,
		)
	}

	if len(draft.Description) > MaxDescriptionLength {
		return domainerror.NewTransactionError(
			domainerror.ErrCodeDescriptionTooLong,
			fmt.Sprintf("description must not exceed %d characters", MaxDescriptionLength),
			domainerror.ErrDescriptionTooLong,
		)
	}

	if len(draft.Notes) > MaxNotesLength {
		return domainerror.NewTransactionError(
			domainerror.ErrCodeNotesTooLong,
			fmt.Sprintf("notes must not exceed %d characters", MaxNotesLength),
			domainerror.ErrNotesTooLong,
		)
	}

	return nil
}

// findOwnedTransaction loads a transaction and checks the caller owns it.
// Absence is reported before ownership.
func findOwnedTransaction(
	ctx context.Context,
	repo adapter.TransactionRepository,
	timeout time.Duration,
	id uuid.UUID,
	userID uuid.UUID,
	action string,
) (*entity.Transaction, error) {
	storeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	transaction, err := repo.FindByID(storeCtx, id)
	if err != nil {
		return nil, storeError(err, "failed to find transaction")
	}

	if !transaction.IsOwnedBy(userID) {
		return nil, domainerror.NewTransactionError(
			domainerror.ErrCodeNotAuthorizedTransaction,
			fmt.Sprintf("not authorized to %s this transaction", action),
			domainerror.ErrNotAuthorizedToModifyTransaction,
		)
	}

	return transaction, nil
}

// storeError classifies a ledger store failure.
func storeError(err error, message string) error {
	if errors.Is(err, domainerror.ErrTransactionNotFound) {
		return domainerror.NewTransactionError(
			domainerror.ErrCodeTransactionNotFound,
			"transaction not found",
			domainerror.ErrTransactionNotFound,
		)
	}
	return domainerror.NewLedgerUnavailableError(fmt.Errorf("%s: %w", message, err))
}

// publishEvent announces a durable write. Failures are logged and never undo the write.
func publishEvent(ctx context.Context, publisher adapter.EventPublisher, timeout time.Duration, event *entity.DomainEvent) {
	// The write is already committed, so a cancelled request must not suppress the event.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := publisher.Publish(publishCtx, event); err != nil {
		slog.Error("Failed to publish transaction event",
			"event_type", event.EventType,
			"transaction_id", event.TransactionID,
			"user_id", event.UserID,
			"sequence", event.Sequence,
			"error", err,
		)
		return
	}

	slog.Debug("Published transaction event",
		"event_type", event.EventType,
		"transaction_id", event.TransactionID,
		"user_id", event.UserID,
		"sequence", event.Sequence,
	)
}
