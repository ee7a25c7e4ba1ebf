// Package brand owns brand records: creating them, scraping their homepage,
// kicking off analysis and serving the status read model.
package brand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/analyzer"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/metrics"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/scrape"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/textutil"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// ErrScrapeFailed is returned by Analyze when the homepage could not be
// fetched or read. The brand row is kept with scrape_status=failed.
var ErrScrapeFailed = errors.New("could not read website")

const (
	maxScrapeErrorBytes   = 500
	dispatchFailedMessage = "dispatch failed"
)

// Status is the read model shared by polling and the push stream.
type Status struct {
	BrandID      uuid.UUID             `json:"brand_id"`
	ScrapeStatus string                `json:"scrape_status"`
	Runs         []*models.AnalysisRun `json:"runs"`
	IsAnalyzing  bool                  `json:"is_analyzing"`
}

type Service struct {
	store      store.Store
	admin      store.AdminStore
	scraper    scrape.Scraper
	dispatcher analyzer.Dispatcher
	types      []models.AnalyzerType
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewService(st store.Store, admin store.AdminStore, scraper scrape.Scraper, dispatcher analyzer.Dispatcher, registry *analyzer.Registry) *Service {
	return &Service{
		store:      st,
		admin:      admin,
		scraper:    scraper,
		dispatcher: dispatcher,
		types:      registry.Types(),
		metrics:    metrics.New(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateBrand inserts a new idle brand for the session's user. Submitting
// the same URL twice creates two brands.
func (s *Service) CreateBrand(ctx context.Context, session models.Session, sourceURL string, isOwnBrand bool) (*models.Brand, error) {
	now := s.now()
	b := &models.Brand{
		ID:           uuid.New(),
		UserID:       session.UserID,
		SourceURL:    sourceURL,
		ScrapeStatus: models.ScrapeStatusIdle,
		IsOwnBrand:   isOwnBrand,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateBrand(ctx, b); err != nil {
		return nil, fmt.Errorf("creating brand: %w", err)
	}
	return b, nil
}

// Analyze validates rawURL, creates a brand, scrapes it, creates one queued
// run per analyzer and dispatches them. It returns once the runs are
// dispatched; it never waits for the analyzers.
func (s *Service) Analyze(ctx context.Context, session models.Session, rawURL string, isOwnBrand bool) (*models.Brand, error) {
	sourceURL, err := scrape.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}

	b, err := s.CreateBrand(ctx, session, sourceURL, isOwnBrand)
	if err != nil {
		return nil, err
	}
	logger := slog.With("brand_id", b.ID, "user_id", session.UserID)

	scraping := models.ScrapeStatusScraping
	if err := s.admin.UpdateBrandAdmin(ctx, b.ID, models.BrandUpdate{ScrapeStatus: &scraping}); err != nil {
		return nil, fmt.Errorf("marking brand scraping: %w", err)
	}
	b.ScrapeStatus = scraping

	content, scrapeErr := s.scraper.Scrape(ctx, sourceURL)
	if scrapeErr != nil {
		s.metrics.ScrapesTotal.WithLabelValues(models.ScrapeStatusFailed).Inc()
		logger.Warn("scrape failed", "url", sourceURL, "error", scrapeErr)

		failed := models.ScrapeStatusFailed
		msg := textutil.Truncate(scrapeErr.Error(), maxScrapeErrorBytes)
		if err := s.admin.UpdateBrandAdmin(ctx, b.ID, models.BrandUpdate{ScrapeStatus: &failed, ScrapeError: &msg}); err != nil {
			logger.Error("failed to record scrape failure", "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrScrapeFailed, scrapeErr)
	}
	s.metrics.ScrapesTotal.WithLabelValues(models.ScrapeStatusComplete).Inc()

	complete := models.ScrapeStatusComplete
	name := scrape.BrandName(content, sourceURL)
	scrapedAt := s.now()
	if err := s.admin.UpdateBrandAdmin(ctx, b.ID, models.BrandUpdate{
		Name:           &name,
		ScrapeStatus:   &complete,
		ScrapedContent: content,
		ScrapedAt:      &scrapedAt,
	}); err != nil {
		return nil, fmt.Errorf("saving scraped content: %w", err)
	}
	b.Name = &name
	b.ScrapeStatus = complete
	b.ScrapedContent = content
	b.ScrapedAt = &scrapedAt

	runs, err := s.store.CreateAnalysisRuns(ctx, b.ID, s.types)
	if err != nil {
		return nil, fmt.Errorf("creating analysis runs: %w", err)
	}

	if err := s.dispatcher.Dispatch(ctx, b.ID, content); err != nil {
		logger.Error("dispatch failed", "error", err)
		s.failUndispatched(context.WithoutCancel(ctx), runs, logger)
		return nil, fmt.Errorf("dispatching analysis: %w", err)
	}
	logger.Info("analysis dispatched", "url", sourceURL, "analyzers", len(s.types))

	return b, nil
}

// failUndispatched moves runs that no analyzer will ever pick up to error,
// through analyzing since queued has no direct edge to error. Runs a worker
// already claimed are left to it.
func (s *Service) failUndispatched(ctx context.Context, runs []*models.AnalysisRun, logger *slog.Logger) {
	msg := dispatchFailedMessage
	for _, run := range runs {
		if err := s.admin.UpdateRunStatus(ctx, run.ID, models.RunStatusAnalyzing); err != nil {
			if !errors.Is(err, store.ErrInvalidTransition) {
				logger.Error("failed to mark undispatched run", "run_id", run.ID, "error", err)
			}
			continue
		}
		if err := s.admin.UpdateRunStatus(ctx, run.ID, models.RunStatusError, store.WithErrorMessage(msg)); err != nil {
			logger.Error("failed to mark undispatched run", "run_id", run.ID, "error", err)
		}
	}
}

func (s *Service) GetBrand(ctx context.Context, session models.Session, brandID uuid.UUID) (*models.Brand, error) {
	return s.store.GetBrand(ctx, brandID, session.UserID)
}

func (s *Service) ListBrands(ctx context.Context, session models.Session, limit int) ([]*models.Brand, error) {
	return s.store.ListBrands(ctx, session.UserID, limit)
}

// GetStatus returns the brand's runs in creation order and whether any of
// them is still in flight.
func (s *Service) GetStatus(ctx context.Context, session models.Session, brandID uuid.UUID) (*Status, error) {
	b, err := s.store.GetBrand(ctx, brandID, session.UserID)
	if err != nil {
		return nil, err
	}
	runs, err := s.store.ListAnalysisRuns(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("listing analysis runs: %w", err)
	}
	return &Status{
		BrandID:      brandID,
		ScrapeStatus: b.ScrapeStatus,
		Runs:         runs,
		IsAnalyzing:  models.IsAnalyzing(runs),
	}, nil
}
