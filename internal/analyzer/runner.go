package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/metrics"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/realtime"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/textutil"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

const maxErrorMessageBytes = 1000

// RunLister reads a brand's runs.
type RunLister interface {
	ListAnalysisRuns(ctx context.Context, brandID uuid.UUID) ([]*models.AnalysisRun, error)
}

// Runner executes every queued run of a brand concurrently. Each analyzer
// owns its own run row and nothing else; one failing analyzer never stops
// its siblings.
type Runner struct {
	provider models.AIProvider
	runs     RunLister
	admin    store.AdminStore
	broker   realtime.Broker
	registry *Registry
	metrics  *metrics.Metrics
}

func NewRunner(provider models.AIProvider, runs RunLister, admin store.AdminStore, broker realtime.Broker, registry *Registry) *Runner {
	return &Runner{
		provider: provider,
		runs:     runs,
		admin:    admin,
		broker:   broker,
		registry: registry,
		metrics:  metrics.New(),
	}
}

// Registry returns the analyzers this runner executes.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// RunAll starts one goroutine per queued run of brandID and returns when all
// of them have reached a terminal status. Runs that are not queued are left
// alone.
func (r *Runner) RunAll(ctx context.Context, brandID uuid.UUID, content *models.ScrapedContent) error {
	runs, err := r.runs.ListAnalysisRuns(ctx, brandID)
	if err != nil {
		return fmt.Errorf("list analysis runs: %w", err)
	}

	var wg sync.WaitGroup
	for _, run := range runs {
		if run.Status != models.RunStatusQueued {
			continue
		}
		wg.Add(1)
		go func(run *models.AnalysisRun) {
			defer wg.Done()
			r.runOne(ctx, run, content)
		}(run)
	}
	wg.Wait()
	return nil
}

// RunBrand loads the brand's scraped content and runs its queued analyzers.
// Used by the queue worker, which only carries the brand ID.
func (r *Runner) RunBrand(ctx context.Context, brandID uuid.UUID) error {
	brand, err := r.admin.GetBrandAdmin(ctx, brandID)
	if err != nil {
		return fmt.Errorf("get brand: %w", err)
	}
	return r.RunAll(ctx, brandID, brand.ScrapedContent)
}

func (r *Runner) runOne(ctx context.Context, run *models.AnalysisRun, content *models.ScrapedContent) {
	logger := slog.With("brand_id", run.BrandID, "run_id", run.ID, "analyzer", run.AnalyzerType)
	status := run.Status
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic in analyzer", "error", rec)
			if status == models.RunStatusQueued {
				if r.transition(ctx, run, models.RunStatusAnalyzing) != nil {
					return
				}
			}
			r.fail(ctx, run, logger, fmt.Sprintf("panic: %v", rec), start)
		}
	}()

	if err := r.transition(ctx, run, models.RunStatusAnalyzing); err != nil {
		// Another consumer already owns this run.
		logger.Warn("skipping run", "error", err)
		return
	}
	status = models.RunStatusAnalyzing

	a, ok := r.registry.Get(run.AnalyzerType)
	if !ok {
		r.fail(ctx, run, logger, fmt.Sprintf("no analyzer registered for %q", run.AnalyzerType), start)
		return
	}
	if content == nil {
		r.fail(ctx, run, logger, "brand has no scraped content", start)
		return
	}

	out, err := r.provider.Complete(ctx, a.Prompt(content))
	if err != nil {
		r.fail(ctx, run, logger.With("transient", ai.Transient(err)), err.Error(), start)
		return
	}

	if err := r.transition(ctx, run, models.RunStatusParsing,
		store.WithRawOutput(out.Text), store.WithModel(out.Model)); err != nil {
		logger.Error("failed to record parsing status", "error", err)
		r.failAfterWriteError(ctx, run, logger, "recording parsing status", err, start)
		return
	}
	status = models.RunStatusParsing

	parsed, err := a.Parse(out.Text)
	if err != nil {
		r.fail(ctx, run, logger, err.Error(), start)
		return
	}

	if err := r.transition(ctx, run, models.RunStatusComplete, store.WithParsedData(parsed)); err != nil {
		logger.Error("failed to record completion", "error", err)
		r.failAfterWriteError(ctx, run, logger, "recording completion", err, start)
		return
	}
	status = models.RunStatusComplete

	r.metrics.AnalyzerRunsTotal.WithLabelValues(string(run.AnalyzerType), models.RunStatusComplete).Inc()
	r.metrics.AnalyzerRunDuration.WithLabelValues(string(run.AnalyzerType)).Observe(time.Since(start).Seconds())
	logger.Info("analyzer complete", "model", out.Model, "duration_ms", time.Since(start).Milliseconds())
}

// failAfterWriteError records a run as errored when a status write failed.
// An invalid transition means someone else moved the run, so it is left alone.
func (r *Runner) failAfterWriteError(ctx context.Context, run *models.AnalysisRun, logger *slog.Logger, step string, err error, start time.Time) {
	if errors.Is(err, store.ErrInvalidTransition) {
		return
	}
	r.fail(ctx, run, logger, fmt.Sprintf("%s: %v", step, err), start)
}

func (r *Runner) fail(ctx context.Context, run *models.AnalysisRun, logger *slog.Logger, msg string, start time.Time) {
	msg = textutil.Truncate(msg, maxErrorMessageBytes)
	if err := r.transition(ctx, run, models.RunStatusError, store.WithErrorMessage(msg)); err != nil {
		logger.Error("failed to record analyzer error", "error", err, "analyzer_error", msg)
		return
	}
	r.metrics.AnalyzerRunsTotal.WithLabelValues(string(run.AnalyzerType), models.RunStatusError).Inc()
	r.metrics.AnalyzerRunDuration.WithLabelValues(string(run.AnalyzerType)).Observe(time.Since(start).Seconds())
	logger.Warn("analyzer failed", "error", msg)
}

// transition writes the new status and then notifies subscribers. A lost
// publish only delays a client's next re-read, so it is logged and ignored.
func (r *Runner) transition(ctx context.Context, run *models.AnalysisRun, status string, opts ...store.RunUpdateOption) error {
	if err := r.admin.UpdateRunStatus(ctx, run.ID, status, opts...); err != nil {
		return err
	}
	event := models.RunEvent{
		BrandID:      run.BrandID,
		RunID:        run.ID,
		AnalyzerType: run.AnalyzerType,
		Status:       status,
		At:           time.Now().UTC(),
	}
	if err := r.broker.Publish(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("failed to publish run event", "brand_id", run.BrandID, "run_id", run.ID, "error", err)
	}
	return nil
}
