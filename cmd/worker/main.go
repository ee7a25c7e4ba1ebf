// Package main is the standalone analysis queue consumer. It is only needed
// when DISPATCH_MODE=queue and the API server's embedded worker is disabled.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai/factory"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/analyzer"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/cache"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/config"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/realtime"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Dispatch.Mode != "queue" {
		return fmt.Errorf("DISPATCH_MODE is %q; the worker only runs in queue mode", cfg.Dispatch.Mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	aiProvider, err := factory.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}

	pgStore := store.NewPostgresStore(pool)
	admin := pgStore.Admin()
	runner := analyzer.NewRunner(aiProvider, pgStore, admin, realtime.NewRedisBroker(redisCache.Client()), analyzer.DefaultRegistry())
	worker := analyzer.NewWorker(redisCache.Client(), cfg.Dispatch.QueueName, runner, admin, cfg.Dispatch.PollTimeout)

	slog.Info("analysis worker started",
		"queue", cfg.Dispatch.QueueName,
		"provider", aiProvider.Name(),
	)
	if err := worker.Run(ctx); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	slog.Info("analysis worker stopped")
	return nil
}
