// Package persistence implements repository interfaces for database operations.
package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/persistence/model"
)

// nextSequenceSQL increments and returns a user's sequence in one statement.
// The row lock it takes serializes concurrent writers for the same user.
const nextSequenceSQL = `INSERT INTO ledger_sequences (user_id, value) VALUES (?, 1)
ON CONFLICT (user_id) DO UPDATE SET value = ledger_sequences.value + 1
RETURNING value`

// transactionRepository implements the adapter.TransactionRepository interface.
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance.
func NewTransactionRepository(db *gorm.DB) adapter.TransactionRepository {
	return &transactionRepository{
		db: db,
	}
}

// nextSequence allocates the user's next event sequence inside tx.
func nextSequence(tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var value int64
	if err := tx.Raw(nextSequenceSQL, userID).Scan(&value).Error; err != nil {
		return 0, err
	}
	if value == 0 {
		return 0, errors.New("sequence allocation returned no value")
	}
	return value, nil
}

// Create creates a new transaction in the database.
func (r *transactionRepository) Create(ctx context.Context, transaction *entity.Transaction) (int64, error) {
	var sequence int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq, err := nextSequence(tx, transaction.UserID)
		if err != nil {
			return err
		}
		transaction.CreatedSeq = seq

		if err := tx.Create(model.TransactionFromEntity(transaction)).Error; err != nil {
			return err
		}
		sequence = seq
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sequence, nil
}

// Update overwrites the mutable fields of an existing transaction.
func (r *transactionRepository) Update(ctx context.Context, transaction *entity.Transaction) (int64, error) {
	var sequence int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := model.TransactionFromEntity(transaction)
		result := tx.Model(&model.TransactionModel{}).
			Where("id = ? AND user_id = ?", transaction.ID, transaction.UserID).
			Updates(map[string]interface{}{
				"type":        m.Type,
				"category":    m.Category,
				"amount":      m.Amount,
				"date":        m.Date,
				"description": m.Description,
				"notes":       m.Notes,
				"updated_at":  m.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerror.ErrTransactionNotFound
		}

		seq, err := nextSequence(tx, transaction.UserID)
		if err != nil {
			return err
		}
		sequence = seq
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sequence, nil
}

// Delete removes a transaction owned by userID.
func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID, userID uuid.UUID) (int64, error) {
	var sequence int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&model.TransactionModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerror.ErrTransactionNotFound
		}

		seq, err := nextSequence(tx, userID)
		if err != nil {
			return err
		}
		sequence = seq
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sequence, nil
}

// FindByID retrieves a transaction by its ID.
func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Transaction, error) {
	var transactionModel model.TransactionModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&transactionModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, domainerror.ErrTransactionNotFound
		}
		return nil, result.Error
	}
	return transactionModel.ToEntity(), nil
}

// FindByFilter lists transactions newest day first, same-day entries in creation order.
func (r *transactionRepository) FindByFilter(ctx context.Context, filter adapter.TransactionFilter) ([]*entity.Transaction, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", filter.UserID)

	if filter.Type != nil {
		query = query.Where("type = ?", string(*filter.Type))
	}
	if filter.StartDate != nil {
		query = query.Where("date >= ?", entity.DateOnly(*filter.StartDate))
	}
	if filter.EndDate != nil {
		query = query.Where("date <= ?", entity.DateOnly(*filter.EndDate))
	}

	var transactionModels []model.TransactionModel
	if err := query.Order("date DESC, created_seq ASC").Find(&transactionModels).Error; err != nil {
		return nil, err
	}
	return toEntities(transactionModels), nil
}

// FindByUserChronological lists all of a user's transactions oldest first, in creation order.
func (r *transactionRepository) FindByUserChronological(ctx context.Context, userID uuid.UUID) ([]*entity.Transaction, error) {
	var transactionModels []model.TransactionModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date ASC, created_seq ASC").
		Find(&transactionModels)
	if result.Error != nil {
		return nil, result.Error
	}
	return toEntities(transactionModels), nil
}

func toEntities(models []model.TransactionModel) []*entity.Transaction {
	transactions := make([]*entity.Transaction, len(models))
	for i := range models {
		transactions[i] = models[i].ToEntity()
	}
	return transactions
}
