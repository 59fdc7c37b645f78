package analytics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// ledgerStub is a read-mostly adapter.TransactionRepository for analytics tests.
type ledgerStub struct {
	mu           sync.Mutex
	transactions []*entity.Transaction
	seq          int64
	reads        int
	err          error
	onRead       func()
}

func (l *ledgerStub) add(userID uuid.UUID, kind entity.TransactionType, category string, amount string, date time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	t := entity.NewTransaction(userID, kind, category, decimal.RequireFromString(amount), date, "", "")
	t.CreatedSeq = l.seq
	l.transactions = append(l.transactions, t)
}

func (l *ledgerStub) read(userID uuid.UUID, filter func(*entity.Transaction) bool) ([]*entity.Transaction, error) {
	l.mu.Lock()
	l.reads++
	hook := l.onRead
	err := l.err
	var out []*entity.Transaction
	for _, t := range l.transactions {
		if t.UserID == userID && (filter == nil || filter(t)) {
			out = append(out, t.Clone())
		}
	}
	l.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *ledgerStub) readCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

func (l *ledgerStub) Create(context.Context, *entity.Transaction) (int64, error) { return 0, nil }
func (l *ledgerStub) Update(context.Context, *entity.Transaction) (int64, error) { return 0, nil }
func (l *ledgerStub) Delete(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, nil
}

func (l *ledgerStub) FindByID(context.Context, uuid.UUID) (*entity.Transaction, error) {
	return nil, domainerror.ErrTransactionNotFound
}

func (l *ledgerStub) FindByFilter(_ context.Context, filter adapter.TransactionFilter) ([]*entity.Transaction, error) {
	return l.read(filter.UserID, func(t *entity.Transaction) bool {
		if filter.StartDate != nil && t.Date.Before(*filter.StartDate) {
			return false
		}
		if filter.EndDate != nil && t.Date.After(*filter.EndDate) {
			return false
		}
		return true
	})
}

func (l *ledgerStub) FindByUserChronological(_ context.Context, userID uuid.UUID) ([]*entity.Transaction, error) {
	out, err := l.read(userID, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedSeq < out[j].CreatedSeq
	})
	return out, nil
}

// mapSnapshotStore is a minimal adapter.SnapshotStore.
type mapSnapshotStore struct {
	mu          sync.Mutex
	snapshots   map[string]*entity.AnalyticsSnapshot
	generations map[string]int64
	puts        int
	err         error
}

func newMapSnapshotStore() *mapSnapshotStore {
	return &mapSnapshotStore{
		snapshots:   make(map[string]*entity.AnalyticsSnapshot),
		generations: make(map[string]int64),
	}
}

func (s *mapSnapshotStore) Get(_ context.Context, userID uuid.UUID, kind entity.SnapshotKind, variant string) (*entity.AnalyticsSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshots[userID.String()+string(kind)+variant], nil
}

func (s *mapSnapshotStore) Put(_ context.Context, snapshot *entity.AnalyticsSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.puts++
	s.snapshots[snapshot.UserID.String()+string(snapshot.Kind)+snapshot.Variant] = snapshot
	return nil
}

func (s *mapSnapshotStore) Generation(_ context.Context, userID uuid.UUID, kind entity.SnapshotKind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	return s.generations[userID.String()+string(kind)], nil
}

func (s *mapSnapshotStore) Invalidate(_ context.Context, userID uuid.UUID, kinds ...entity.SnapshotKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, kind := range kinds {
		s.generations[userID.String()+string(kind)]++
	}
	return nil
}

func (s *mapSnapshotStore) HealthCheck() bool { return s.err == nil }

func (s *mapSnapshotStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
