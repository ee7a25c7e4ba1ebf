// Package main is the entrypoint for the brand analysis API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai/factory"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/analyzer"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/api"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/api/handler"
	mw "github.com/hazelquimpo21/thecleverkit-sub001/internal/api/middleware"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/brand"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/cache"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/config"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/docs"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/google"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/realtime"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/scrape"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/storage"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"ai_provider", cfg.AI.Provider,
		"dispatch_mode", cfg.Dispatch.Mode,
		"google_export", cfg.Google.Enabled(),
		"archive", cfg.Storage.Enabled(),
		"env", cfg.Server.Env,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create AI provider
	aiProvider, err := factory.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", aiProvider.Name())

	// 6. Stores, analyzers and dispatch
	pgStore := store.NewPostgresStore(pool)
	admin := pgStore.Admin()
	broker := realtime.NewRedisBroker(redisCache.Client())
	registry := analyzer.DefaultRegistry()
	runner := analyzer.NewRunner(aiProvider, pgStore, admin, broker, registry)

	dispatcher, worker := newDispatcher(cfg.Dispatch, redisCache.Client(), runner, admin)

	var workerWG sync.WaitGroup
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if worker != nil {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			slog.Info("embedded analysis worker started", "queue", cfg.Dispatch.QueueName)
			if err := worker.Run(workerCtx); err != nil {
				slog.Error("embedded analysis worker stopped", "error", err)
			}
		}()
	}

	// 7. Domain services
	scraper := scrape.NewHTTPScraper(cfg.Scraper.Timeout, cfg.Scraper.UserAgent, cfg.Scraper.MaxBodyBytes)
	brands := brand.NewService(pgStore, admin, scraper, dispatcher, registry)

	var archive docs.Archive
	if cfg.Storage.Enabled() {
		minioStore, err := storage.NewMinIOStore(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("create document archive: %w", err)
		}
		archive = minioStore
		slog.Info("document archive enabled", "bucket", cfg.Storage.Bucket)
	}
	docService := docs.NewService(pgStore, admin, docs.DefaultCatalog(), docs.NewGenerator(aiProvider), archive)

	googleService, err := newGoogleService(cfg, pgStore, admin, redisCache)
	if err != nil {
		return fmt.Errorf("create google export: %w", err)
	}

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Auth:           mw.NewAuth(cfg.Auth),
		RateLimit:      mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute),
		AllowedOrigins: cfg.Server.AllowedOrigins,

		HealthHandler: handler.NewHealthHandler(pgStore, redisCache),

		AnalyzeBrand:      handler.NewAnalyzeHandler(brands),
		ListBrands:        handler.NewListBrandsHandler(brands),
		GetBrand:          handler.NewGetBrandHandler(brands),
		BrandStatus:       handler.NewStatusHandler(brands),
		BrandStatusStream: handler.NewStatusStreamHandler(brands, broker, handler.DefaultHeartbeat),

		ListTemplates: handler.NewTemplatesHandler(docService),
		GenerateDoc:   handler.NewGenerateDocHandler(docService),
		GetDoc:        handler.NewGetDocHandler(docService),
		ListBrandDocs: handler.NewListDocsHandler(docService),
		DocReadiness:  handler.NewReadinessHandler(docService),
	}
	if googleService != nil {
		deps.ExportGoogleDoc = handler.NewExportHandler(googleService)
		deps.GoogleInitiate = handler.NewGoogleInitiateHandler(googleService)
		deps.GoogleCallback = handler.NewGoogleCallbackHandler(googleService)
		deps.GoogleStatus = handler.NewGoogleStatusHandler(googleService)
		deps.GoogleDisconnect = handler.NewGoogleDisconnectHandler(googleService)
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
		// Doc generation runs two AI calls inside the request.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2*cfg.AI.InferenceTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	stopWorker()
	workerWG.Wait()

	if inproc, ok := dispatcher.(*analyzer.InProcessDispatcher); ok {
		if err := inproc.Wait(shutdownCtx); err != nil {
			slog.Warn("analysis still running at shutdown; unfinished runs stay in flight", "error", err)
		}
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newDispatcher picks the dispatch strategy. In queue mode it also returns
// the embedded consumer unless that is switched off.
func newDispatcher(cfg config.DispatchConfig, client *redis.Client, runner *analyzer.Runner, admin store.AdminStore) (analyzer.Dispatcher, *analyzer.Worker) {
	if cfg.Mode != "queue" {
		return analyzer.NewInProcessDispatcher(runner), nil
	}
	d := analyzer.NewQueueDispatcher(client, cfg.QueueName)
	if !cfg.EmbeddedWorker {
		return d, nil
	}
	return d, analyzer.NewWorker(client, cfg.QueueName, runner, admin, cfg.PollTimeout)
}

// newGoogleService returns nil when Google export is not configured.
func newGoogleService(cfg *config.Config, st store.Store, admin store.AdminStore, nonces cache.Cache) (*google.Service, error) {
	if !cfg.Google.Enabled() {
		return nil, nil
	}
	cipher, err := google.NewTokenCipher(cfg.Google.TokenKey)
	if err != nil {
		return nil, err
	}
	return google.NewService(
		st,
		admin,
		google.NewClient(cfg.Google),
		google.NewStateSigner([]byte(cfg.Auth.JWTSecret)),
		nonces,
		cipher,
		cfg.Server.AppBaseURL,
	), nil
}
