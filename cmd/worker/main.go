// Package main is the entry point for the analytics event worker.
// It consumes ledger events and invalidates the owning user's analytics snapshots.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/finance-tracker/ledger/config"
	"github.com/finance-tracker/ledger/internal/infra/db"
	"github.com/finance-tracker/ledger/internal/infra/dependency"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Events.Channel == config.ChannelMemory {
		slog.Error("The memory event channel is only reachable from the API process; run the worker with amqp or redis")
		os.Exit(1)
	}
	if cfg.Analytics.Cache == config.CacheMemory {
		slog.Error("The memory analytics cache is only visible to the API process; run the worker with ANALYTICS_CACHE=redis")
		os.Exit(1)
	}

	slog.Info("Starting analytics worker",
		"event_channel", cfg.Events.Channel,
		"partitions", cfg.Events.Partitions,
		"analytics_cache", cfg.Analytics.Cache,
	)

	database, err := db.NewConnection(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()

	injector, err := dependency.NewInjector(cfg, database)
	if err != nil {
		slog.Error("Failed to wire dependencies", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := injector.Close(); err != nil {
			slog.Error("Failed to release dependencies", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector.StartMaintenance(ctx)

	if err := injector.Consumer.Start(ctx); err != nil {
		slog.Error("Event consumer failed", "error", err)
		stop()
		os.Exit(1)
	}

	slog.Info("Worker exited properly")
}
