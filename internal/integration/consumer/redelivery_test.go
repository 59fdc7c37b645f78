package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/application/usecase/analytics"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	"github.com/finance-tracker/ledger/internal/integration/cache"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/dto"
	"github.com/finance-tracker/ledger/internal/integration/messaging"
	"github.com/finance-tracker/ledger/internal/integration/persistence"
	"github.com/finance-tracker/ledger/internal/integration/persistence/model"
)

type frozenClock struct {
	now time.Time
}

func (c frozenClock) Now() time.Time {
	return c.now
}

func newLedgerRepository(t *testing.T) adapter.TransactionRepository {
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
	return persistence.NewTransactionRepository(db)
}

// analyticsView renders the breakdown and report exactly as the API would.
func analyticsView(t *testing.T, m *analytics.Materializer, userID uuid.UUID) string {
	t.Helper()
	ctx := context.Background()

	breakdown, err := m.GetCategoryBreakdown(ctx, userID)
	if err != nil {
		t.Fatalf("GetCategoryBreakdown() error: %v", err)
	}
	report, err := m.GetReport(ctx, userID, "")
	if err != nil {
		t.Fatalf("GetReport() error: %v", err)
	}

	raw, err := json.Marshal(struct {
		Breakdown dto.CategoryBreakdownResponse `json:"breakdown"`
		Report    dto.ReportResponse            `json:"report"`
	}{dto.ToCategoryBreakdownResponse(breakdown), dto.ToReportResponse(report)})
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	return string(raw)
}

func TestConsumer_RedeliveryLeavesSnapshotsUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := newLedgerRepository(t)
	store := cache.NewMemorySnapshotStore(100, time.Hour)
	materializer := analytics.NewMaterializer(repo, store, frozenClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}, analytics.Config{
		SnapshotTTL:  time.Hour,
		MaxTrendDays: 365,
		StoreTimeout: time.Second,
	})
	consumer := NewConsumer(nil, materializer, Config{})

	userID := uuid.New()
	var last adapter.EventMessage
	for _, row := range []struct {
		kind     entity.TransactionType
		category string
		amount   string
	}{
		{entity.TransactionTypeIncome, "Salary", "5000"},
		{entity.TransactionTypeExpense, "Food", "800"},
	} {
		txn := entity.NewTransaction(userID, row.kind, row.category, decimal.RequireFromString(row.amount),
			time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), "", "")
		sequence, err := repo.Create(ctx, txn)
		if err != nil {
			t.Fatalf("Create() error: %v", err)
		}
		body, err := messaging.EncodeEvent(entity.NewDomainEvent(entity.EventTypeCreated, txn, sequence))
		if err != nil {
			t.Fatalf("EncodeEvent() error: %v", err)
		}
		last = adapter.EventMessage{Key: userID.String(), Body: body}
		if err := consumer.Handle(ctx, last); err != nil {
			t.Fatalf("Handle() error: %v", err)
		}
	}

	once := analyticsView(t, materializer, userID)

	redelivered := last
	redelivered.Redelivered = true
	for i := 0; i < 2; i++ {
		if err := consumer.Handle(ctx, redelivered); err != nil {
			t.Fatalf("Handle() redelivery error: %v", err)
		}
	}

	twice := analyticsView(t, materializer, userID)
	if once != twice {
		t.Fatalf("analytics changed after redelivery:\nonce:  %s\ntwice: %s", once, twice)
	}

	var view struct {
		Report dto.ReportResponse `json:"report"`
	}
	if err := json.Unmarshal([]byte(twice), &view); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}
	if view.Report.TotalIncome != "5000.00" || view.Report.TotalExpense != "800.00" {
		t.Errorf("totals = %s/%s, want 5000.00/800.00", view.Report.TotalIncome, view.Report.TotalExpense)
	}
	if got, ok := consumer.LastSequence(userID); !ok || got != 2 {
		t.Errorf("LastSequence() = %d, %v, want 2, true", got, ok)
	}
}
