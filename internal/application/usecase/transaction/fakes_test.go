package transaction

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
)

// fakeTransactionRepository is an in-memory adapter.TransactionRepository.
type fakeTransactionRepository struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*entity.Transaction
	sequences    map[uuid.UUID]int64
	err          error
	calls        int
}

func newFakeTransactionRepository() *fakeTransactionRepository {
	return &fakeTransactionRepository{
		transactions: make(map[uuid.UUID]*entity.Transaction),
		sequences:    make(map[uuid.UUID]int64),
	}
}

func (r *fakeTransactionRepository) next(userID uuid.UUID) int64 {
	r.sequences[userID]++
	return r.sequences[userID]
}

func (r *fakeTransactionRepository) Create(_ context.Context, t *entity.Transaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return 0, r.err
	}
	seq := r.next(t.UserID)
	t.CreatedSeq = seq
	r.transactions[t.ID] = t.Clone()
	return seq, nil
}

func (r *fakeTransactionRepository) Update(_ context.Context, t *entity.Transaction) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return 0, r.err
	}
	if _, ok := r.transactions[t.ID]; !ok {
		return 0, domainerror.ErrTransactionNotFound
	}
	r.transactions[t.ID] = t.Clone()
	return r.next(t.UserID), nil
}

func (r *fakeTransactionRepository) Delete(_ context.Context, id uuid.UUID, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return 0, r.err
	}
	t, ok := r.transactions[id]
	if !ok || t.UserID != userID {
		return 0, domainerror.ErrTransactionNotFound
	}
	delete(r.transactions, id)
	return r.next(userID), nil
}

func (r *fakeTransactionRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	t, ok := r.transactions[id]
	if !ok {
		return nil, domainerror.ErrTransactionNotFound
	}
	return t.Clone(), nil
}

func (r *fakeTransactionRepository) FindByFilter(_ context.Context, filter adapter.TransactionFilter) ([]*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var out []*entity.Transaction
	for _, t := range r.transactions {
		if t.UserID != filter.UserID {
			continue
		}
		if filter.Type != nil && t.Type != *filter.Type {
			continue
		}
		if filter.StartDate != nil && t.Date.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && t.Date.After(*filter.EndDate) {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedSeq < out[j].CreatedSeq
	})
	return out, nil
}

func (r *fakeTransactionRepository) FindByUserChronological(ctx context.Context, userID uuid.UUID) ([]*entity.Transaction, error) {
	out, err := r.FindByFilter(ctx, adapter.TransactionFilter{UserID: userID})
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

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*entity.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *entity.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) published() []*entity.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*entity.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

var errStoreDown = errors.New("dial tcp 127.0.0.1:5432: connection refused")
