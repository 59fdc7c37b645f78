package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/domain/entity"
)

// RedisSnapshotStore keeps snapshots and generation counters in Redis,
// so every API and worker instance shares one view of staleness.
type RedisSnapshotStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisSnapshotStore creates a store whose snapshots expire after ttl. Zero keeps them until replaced.
func NewRedisSnapshotStore(client redis.UniversalClient, ttl time.Duration) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, ttl: ttl}
}

// Get returns the stored snapshot or nil when absent.
// A record that cannot be decoded is treated as absent.
func (s *RedisSnapshotStore) Get(ctx context.Context, userID uuid.UUID, kind entity.SnapshotKind, variant string) (*entity.AnalyticsSnapshot, error) {
	key := snapshotKey(userID, kind, variant)

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", key, err)
	}

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		slog.Warn("Discarding undecodable analytics snapshot", "key", key, "error", err)
		return nil, nil
	}
	return snapshot, nil
}

// Put stores snapshot with the configured TTL.
func (s *RedisSnapshotStore) Put(ctx context.Context, snapshot *entity.AnalyticsSnapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	key := snapshotKey(snapshot.UserID, snapshot.Kind, snapshot.Variant)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot %s: %w", key, err)
	}
	return nil
}

// Generation reads the counter for (userID, kind).
func (s *RedisSnapshotStore) Generation(ctx context.Context, userID uuid.UUID, kind entity.SnapshotKind) (int64, error) {
	generation, err := s.client.Get(ctx, generationKey(userID, kind)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get generation: %w", err)
	}
	return generation, nil
}

// Invalidate increments each kind's counter in one round trip. INCR never decreases a value.
func (s *RedisSnapshotStore) Invalidate(ctx context.Context, userID uuid.UUID, kinds ...entity.SnapshotKind) error {
	if len(kinds) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	for _, kind := range kinds {
		pipe.Incr(ctx, generationKey(userID, kind))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("advance generations: %w", err)
	}
	return nil
}

// HealthCheck pings Redis.
func (s *RedisSnapshotStore) HealthCheck() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.client.Ping(ctx).Err() == nil
}

var _ adapter.SnapshotStore = (*RedisSnapshotStore)(nil)
