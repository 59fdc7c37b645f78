package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// MemorySnapshotStore keeps snapshots in a process-local LRU.
// Generations live in a plain map so eviction can never rewind them.
type MemorySnapshotStore struct {
	snapshots *LRUCache[entity.AnalyticsSnapshot]

	mu          sync.Mutex
	generations map[string]int64
}

// NewMemorySnapshotStore creates a store holding at most maxSize snapshots for ttl each.
func NewMemorySnapshotStore(maxSize int, ttl time.Duration) *MemorySnapshotStore {
	return &MemorySnapshotStore{
		snapshots:   NewLRUCache[entity.AnalyticsSnapshot](maxSize, ttl),
		generations: make(map[string]int64),
	}
}

// Get returns a copy of the stored snapshot.
func (s *MemorySnapshotStore) Get(_ context.Context, userID uuid.UUID, kind entity.SnapshotKind, variant string) (*entity.AnalyticsSnapshot, error) {
	snapshot, ok := s.snapshots.Get(snapshotKey(userID, kind, variant))
	if !ok {
		return nil, nil
	}
	return &snapshot, nil
}

// Put stores a copy of snapshot.
func (s *MemorySnapshotStore) Put(_ context.Context, snapshot *entity.AnalyticsSnapshot) error {
	s.snapshots.Set(snapshotKey(snapshot.UserID, snapshot.Kind, snapshot.Variant), *snapshot)
	return nil
}

// Generation returns the current generation of (userID, kind).
func (s *MemorySnapshotStore) Generation(_ context.Context, userID uuid.UUID, kind entity.SnapshotKind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[generationKey(userID, kind)], nil
}

// Invalidate advances the generation of each kind.
func (s *MemorySnapshotStore) Invalidate(_ context.Context, userID uuid.UUID, kinds ...entity.SnapshotKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range kinds {
		s.generations[generationKey(userID, kind)]++
	}
	return nil
}

// HealthCheck always succeeds for the in-process store.
func (s *MemorySnapshotStore) HealthCheck() bool {
	return true
}

// StartCleanup purges expired snapshots every interval until ctx is done.
func (s *MemorySnapshotStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.snapshots.CleanExpired(); removed > 0 {
					slog.Debug("Purged expired analytics snapshots", "removed", removed)
				}
			}
		}
	}()
}

var _ adapter.SnapshotStore = (*MemorySnapshotStore)(nil)
