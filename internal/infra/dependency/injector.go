// Package dependency provides dependency injection for the application.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/finance-tracker/ledger/config"
	"github.com/finance-tracker/ledger/internal/application/adapter"
	"github.com/finance-tracker/ledger/internal/application/usecase/analytics"
	"github.com/finance-tracker/ledger/internal/application/usecase/transaction"
	"github.com/finance-tracker/ledger/internal/infra/db"
	"github.com/finance-tracker/ledger/internal/infra/server/router"
	"github.com/finance-tracker/ledger/internal/integration/adapters"
	"github.com/finance-tracker/ledger/internal/integration/cache"
	"github.com/finance-tracker/ledger/internal/integration/consumer"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/controller"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/middleware"
	"github.com/finance-tracker/ledger/internal/integration/messaging"
	"github.com/finance-tracker/ledger/internal/integration/messaging/inmemory"
	"github.com/finance-tracker/ledger/internal/integration/messaging/rabbitmq"
	"github.com/finance-tracker/ledger/internal/integration/messaging/redisstream"
	"github.com/finance-tracker/ledger/internal/integration/persistence"
)

const cleanupInterval = 5 * time.Minute

// Injector holds all application dependencies.
type Injector struct {
	Config       *config.Config
	Database     *db.Database
	Redis        redis.UniversalClient
	Channel      adapter.EventChannel
	Snapshots    adapter.SnapshotStore
	Materializer *analytics.Materializer
	Consumer     *consumer.Consumer
	RateLimiter  *middleware.RateLimiter
	Router       *router.Router
}

// Options overrides infrastructure the injector would otherwise build from config.
type Options struct {
	Redis redis.UniversalClient
	Clock adapter.Clock
}

// NewInjector creates a new dependency injector with all dependencies wired.
func NewInjector(cfg *config.Config, database *db.Database) (*Injector, error) {
	return NewInjectorWithOptions(cfg, database, Options{})
}

// NewInjectorWithOptions is NewInjector with injectable infrastructure.
func NewInjectorWithOptions(cfg *config.Config, database *db.Database, opts Options) (*Injector, error) {
	i := &Injector{
		Config:   cfg,
		Database: database,
		Redis:    opts.Redis,
	}

	if i.Redis == nil && cfg.UsesRedis() {
		client, err := newRedisClient(&cfg.Redis)
		if err != nil {
			return nil, err
		}
		i.Redis = client
	}

	channel, err := newEventChannel(cfg, i.Redis)
	if err != nil {
		i.closeRedis()
		return nil, err
	}
	i.Channel = channel

	switch cfg.Analytics.Cache {
	case config.CacheRedis:
		i.Snapshots = cache.NewRedisSnapshotStore(i.Redis, cfg.Analytics.SnapshotTTL)
	default:
		i.Snapshots = cache.NewMemorySnapshotStore(cfg.Analytics.MemoryCacheSize, cfg.Analytics.SnapshotTTL)
	}

	clock := opts.Clock
	if clock == nil {
		clock = adapters.NewSystemClock()
	}

	// Create repositories
	transactionRepo := persistence.NewTransactionRepository(database.DB())

	// Create transaction use cases
	timeouts := transaction.Timeouts{
		Store:   cfg.Ledger.StoreTimeout,
		Publish: cfg.Ledger.PublishTimeout,
	}
	listTransactionsUseCase := transaction.NewListTransactionsUseCase(transactionRepo, timeouts)
	createTransactionUseCase := transaction.NewCreateTransactionUseCase(transactionRepo, i.Channel, timeouts)
	updateTransactionUseCase := transaction.NewUpdateTransactionUseCase(transactionRepo, i.Channel, timeouts)
	deleteTransactionUseCase := transaction.NewDeleteTransactionUseCase(transactionRepo, i.Channel, timeouts)
	getStatsUseCase := transaction.NewGetStatsUseCase(transactionRepo, timeouts)

	// Create analytics materializer and the consumer feeding it
	i.Materializer = analytics.NewMaterializer(transactionRepo, i.Snapshots, clock, analytics.Config{
		SnapshotTTL:  cfg.Analytics.SnapshotTTL,
		MaxTrendDays: cfg.Analytics.MaxTrendDays,
		StoreTimeout: cfg.Ledger.StoreTimeout,
	})
	i.Consumer = consumer.NewConsumer(i.Channel, i.Materializer, consumer.Config{})

	// Create controllers
	var cacheHealthChecker controller.HealthChecker
	if cfg.Analytics.Cache == config.CacheRedis {
		cacheHealthChecker = i.Snapshots.HealthCheck
	}
	var brokerHealthChecker controller.HealthChecker
	if cfg.Events.Channel != config.ChannelMemory {
		brokerHealthChecker = i.Channel.HealthCheck
	}
	healthController := controller.NewHealthController(database.HealthCheck, cacheHealthChecker, brokerHealthChecker)

	transactionController := controller.NewTransactionController(
		listTransactionsUseCase,
		createTransactionUseCase,
		updateTransactionUseCase,
		deleteTransactionUseCase,
		getStatsUseCase,
	)
	analyticsController := controller.NewAnalyticsController(i.Materializer)

	// Create middleware
	i.RateLimiter = middleware.NewRateLimiterWithConfig(cfg.RateLimit.MaxWrites, cfg.RateLimit.Window)

	i.Router = router.NewRouter(healthController, transactionController, analyticsController, i.RateLimiter)

	return i, nil
}

// RunsConsumerInProcess reports whether the API process must consume events itself.
func (i *Injector) RunsConsumerInProcess() bool {
	return i.Config.ConsumesInProcess()
}

// StartMaintenance runs periodic cleanup of in-process caches until ctx is cancelled.
func (i *Injector) StartMaintenance(ctx context.Context) {
	if store, ok := i.Snapshots.(*cache.MemorySnapshotStore); ok {
		go store.StartCleanup(ctx, cleanupInterval)
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				i.RateLimiter.Cleanup()
			}
		}
	}()
}

// Close releases the event channel and the Redis client. The database is owned by the caller.
func (i *Injector) Close() error {
	var errs []error
	if i.Channel != nil {
		if err := i.Channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event channel: %w", err))
		}
	}
	if err := i.closeRedis(); err != nil {
		errs = append(errs, fmt.Errorf("close redis: %w", err))
	}
	return errors.Join(errs...)
}

func (i *Injector) closeRedis() error {
	if i.Redis == nil {
		return nil
	}
	return i.Redis.Close()
}

func newRedisClient(cfg *config.RedisConfig) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	return redis.NewClient(opts), nil
}

func newEventChannel(cfg *config.Config, client redis.UniversalClient) (adapter.EventChannel, error) {
	backoff := messaging.Backoff{
		Base: cfg.Events.RetryBaseDelay,
		Max:  cfg.Events.RetryMaxDelay,
	}

	switch cfg.Events.Channel {
	case config.ChannelMemory:
		slog.Info("Using in-memory event channel", "partitions", cfg.Events.Partitions)
		return inmemory.NewChannel(cfg.Events.Partitions, inmemory.DefaultBufferSize, backoff), nil
	case config.ChannelRedis:
		slog.Info("Using Redis Streams event channel",
			"partitions", cfg.Events.Partitions,
			"group", cfg.Events.ConsumerGroup,
		)
		return redisstream.NewChannel(client, redisstream.Options{
			Prefix:     cfg.Events.StreamPrefix,
			Group:      cfg.Events.ConsumerGroup,
			Consumer:   cfg.Events.ConsumerName,
			Partitions: cfg.Events.Partitions,
			Block:      cfg.Events.StreamBlock,
			Backoff:    backoff,
		}), nil
	case config.ChannelAMQP:
		slog.Info("Using RabbitMQ event channel",
			"partitions", cfg.Events.Partitions,
			"exchange", cfg.Events.AMQPExchange,
		)
		channel, err := rabbitmq.Dial(rabbitmq.Options{
			URL:         cfg.Events.AMQPURL,
			Exchange:    cfg.Events.AMQPExchange,
			QueuePrefix: cfg.Events.AMQPQueue,
			Partitions:  cfg.Events.Partitions,
			Backoff:     backoff,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		return channel, nil
	default:
		return nil, fmt.Errorf("unsupported event channel %q", cfg.Events.Channel)
	}
}
