package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/persistence/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.AllModels()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func day(s string) time.Time {
	d, err := time.Parse(entity.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTxn(userID uuid.UUID, tType entity.TransactionType, category, amount, date string) *entity.Transaction {
	return entity.NewTransaction(userID, tType, category, decimal.RequireFromString(amount), day(date), "", "")
}

func TestTransactionRepository_SequencesArePerUser(t *testing.T) {
	repo := NewTransactionRepository(newTestDB(t))
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	first := newTxn(alice, entity.TransactionTypeIncome, "Salary", "5000", "2024-01-15")
	seq, err := repo.Create(ctx, first)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if seq != 1 || first.CreatedSeq != 1 {
		t.Errorf("first sequence = %d (CreatedSeq %d), want 1", seq, first.CreatedSeq)
	}

	seq, err = repo.Create(ctx, newTxn(bob, entity.TransactionTypeExpense, "Food", "10", "2024-01-15"))
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if seq != 1 {
		t.Errorf("bob's first sequence = %d, want 1", seq)
	}

	first.Overwrite(entity.TransactionTypeIncome, "Salary", decimal.RequireFromString("5100"), day("2024-01-15"), "raise", "")
	seq, err = repo.Update(ctx, first)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if seq != 2 {
		t.Errorf("update sequence = %d, want 2", seq)
	}

	seq, err = repo.Delete(ctx, first.ID, alice)
	if err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if seq != 3 {
		t.Errorf("delete sequence = %d, want 3", seq)
	}

	if _, err := repo.FindByID(ctx, first.ID); !errors.Is(err, domainerror.ErrTransactionNotFound) {
		t.Errorf("FindByID() after delete error = %v, want ErrTransactionNotFound", err)
	}
}

func TestTransactionRepository_UpdateAndDeleteMissing(t *testing.T) {
	repo := NewTransactionRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	ghost := newTxn(userID, entity.TransactionTypeExpense, "Food", "1", "2024-01-01")
	if _, err := repo.Update(ctx, ghost); !errors.Is(err, domainerror.ErrTransactionNotFound) {
		t.Errorf("Update() error = %v, want ErrTransactionNotFound", err)
	}
	if _, err := repo.Delete(ctx, ghost.ID, userID); !errors.Is(err, domainerror.ErrTransactionNotFound) {
		t.Errorf("Delete() error = %v, want ErrTransactionNotFound", err)
	}

	// A failed write must not consume a sequence.
	seq, err := repo.Create(ctx, ghost)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if seq != 1 {
		t.Errorf("sequence after failed writes = %d, want 1", seq)
	}
}

func TestTransactionRepository_RoundTrip(t *testing.T) {
	repo := NewTransactionRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	txn := entity.NewTransaction(userID, entity.TransactionTypeExpense, "Groceries",
		decimal.RequireFromString("123.45"), day("2024-03-02"), "weekly shop", "paid by card")
	if _, err := repo.Create(ctx, txn); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := repo.FindByID(ctx, txn.ID)
	if err != nil {
		t.Fatalf("FindByID() error: %v", err)
	}
	if got.UserID != userID || got.Type != entity.TransactionTypeExpense || got.Category != "Groceries" {
		t.Errorf("FindByID() = %+v, fields mismatch", got)
	}
	if !got.Amount.Equal(decimal.RequireFromString("123.45")) {
		t.Errorf("Amount = %s, want 123.45", got.Amount)
	}
	if got.Date.Format(entity.DateLayout) != "2024-03-02" {
		t.Errorf("Date = %s, want 2024-03-02", got.Date.Format(entity.DateLayout))
	}
	if got.Description != "weekly shop" || got.Notes != "paid by card" {
		t.Errorf("Description/Notes = %q/%q", got.Description, got.Notes)
	}
}

func TestTransactionRepository_FindByFilter(t *testing.T) {
	repo := NewTransactionRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()
	other := uuid.New()

	seed := []*entity.Transaction{
		newTxn(userID, entity.TransactionTypeExpense, "Rent", "1500", "2024-01-01"),
		newTxn(userID, entity.TransactionTypeIncome, "Salary", "5000", "2024-01-15"),
		newTxn(userID, entity.TransactionTypeExpense, "Food", "20", "2024-01-15"),
		newTxn(userID, entity.TransactionTypeExpense, "Food", "30", "2024-02-01"),
		newTxn(other, entity.TransactionTypeExpense, "Food", "99", "2024-01-15"),
	}
	for _, txn := range seed {
		if _, err := repo.Create(ctx, txn); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	expense := entity.TransactionTypeExpense
	start, end := day("2024-01-10"), day("2024-01-31")

	tests := []struct {
		name       string
		filter     adapter.TransactionFilter
		wantAmount []string
	}{
		{
			name:       "all, newest day first and same day in creation order",
			filter:     adapter.TransactionFilter{UserID: userID},
			wantAmount: []string{"30", "5000", "20", "1500"},
		},
		{
			name:       "by type",
			filter:     adapter.TransactionFilter{UserID: userID, Type: &expense},
			wantAmount: []string{"30", "20", "1500"},
		},
		{
			name:       "by inclusive date range",
			filter:     adapter.TransactionFilter{UserID: userID, StartDate: &start, EndDate: &end},
			wantAmount: []string{"5000", "20"},
		},
		{
			name:       "unknown user",
			filter:     adapter.TransactionFilter{UserID: uuid.New()},
			wantAmount: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.FindByFilter(ctx, tt.filter)
			if err != nil {
				t.Fatalf("FindByFilter() error: %v", err)
			}
			if len(got) != len(tt.wantAmount) {
				t.Fatalf("FindByFilter() returned %d rows, want %d", len(got), len(tt.wantAmount))
			}
			for i, want := range tt.wantAmount {
				if !got[i].Amount.Equal(decimal.RequireFromString(want)) {
					t.Errorf("row %d amount = %s, want %s", i, got[i].Amount, want)
				}
			}
		})
	}
}

func TestTransactionRepository_FindByUserChronological(t *testing.T) {
	repo := NewTransactionRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	for _, txn := range []*entity.Transaction{
		newTxn(userID, entity.TransactionTypeExpense, "B", "2", "2024-01-02"),
		newTxn(userID, entity.TransactionTypeExpense, "A", "1", "2024-01-01"),
		newTxn(userID, entity.TransactionTypeExpense, "C", "3", "2024-01-02"),
	} {
		if _, err := repo.Create(ctx, txn); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	got, err := repo.FindByUserChronological(ctx, userID)
	if err != nil {
		t.Fatalf("FindByUserChronological() error: %v", err)
	}
	var order string
	for _, txn := range got {
		order += txn.Category
	}
	if order != "ABC" {
		t.Errorf("order = %q, want %q", order, "ABC")
	}
}

func TestTransactionRepository_ConcurrentWritesGetDistinctSequences(t *testing.T) {
	repo := NewTransactionRepository(newTestDB(t))
	ctx := context.Background()
	userID := uuid.New()

	const writers = 10
	seqs := make(chan int64, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := repo.Create(ctx, newTxn(userID, entity.TransactionTypeIncome, "Gift", "1", "2024-01-01"))
			if err != nil {
				t.Errorf("Create() error: %v", err)
				return
			}
			seqs <- seq
		}()
	}
	wg.Wait()
	close(seqs)

	seen := make(map[int64]bool)
	for seq := range seqs {
		if seen[seq] {
			t.Errorf("sequence %d issued twice", seq)
		}
		seen[seq] = true
	}
	for i := int64(1); i <= writers; i++ {
		if !seen[i] {
			t.Errorf("sequence %d missing", i)
		}
	}
}
