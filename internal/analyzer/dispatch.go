package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/cache"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/metrics"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/redis/go-redis/v9"
)

// Dispatcher hands a brand's queued runs to whatever executes them. Dispatch
// never waits for the analyzers.
type Dispatcher interface {
	Dispatch(ctx context.Context, brandID uuid.UUID, content *models.ScrapedContent) error
}

// --- In-process ---

// InProcessDispatcher runs analyzers on goroutines of the calling process.
// Work is detached from the request context and is lost if the process
// exits before it finishes.
type InProcessDispatcher struct {
	runner *Runner
	wg     sync.WaitGroup
}

func NewInProcessDispatcher(runner *Runner) *InProcessDispatcher {
	return &InProcessDispatcher{runner: runner}
}

func (d *InProcessDispatcher) Dispatch(_ context.Context, brandID uuid.UUID, content *models.ScrapedContent) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic in analysis dispatch", "error", rec, "brand_id", brandID)
			}
		}()
		if err := d.runner.RunAll(context.Background(), brandID, content); err != nil {
			slog.Error("analysis dispatch failed", "brand_id", brandID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched brand has finished or ctx ends.
func (d *InProcessDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- Redis queue ---

// Job is one durable dispatch. The worker re-reads the brand, so only the ID
// travels through the queue.
type Job struct {
	BrandID    uuid.UUID `json:"brand_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// QueueDispatcher pushes jobs onto a Redis list consumed by Worker.
type QueueDispatcher struct {
	client  *redis.Client
	pending string
	metrics *metrics.Metrics
}

func NewQueueDispatcher(client *redis.Client, queue string) *QueueDispatcher {
	return &QueueDispatcher{
		client:  client,
		pending: cache.QueuePendingKey(queue),
		metrics: metrics.New(),
	}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, brandID uuid.UUID, _ *models.ScrapedContent) error {
	payload, err := json.Marshal(Job{BrandID: brandID, EnqueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	depth, err := d.client.LPush(ctx, d.pending, payload).Result()
	if err != nil {
		return fmt.Errorf("enqueue analysis: %w", err)
	}
	d.metrics.DispatchQueueDepth.Set(float64(depth))
	return nil
}

// Worker consumes the queue with the reliable-queue pattern: a job is moved
// atomically from pending to processing and removed from processing only
// after its runs have finished, so a crash leaves it to be redelivered.
type Worker struct {
	client      *redis.Client
	pending     string
	processing  string
	runner      *Runner
	admin       store.AdminStore
	pollTimeout time.Duration
	metrics     *metrics.Metrics
}

func NewWorker(client *redis.Client, queue string, runner *Runner, admin store.AdminStore, pollTimeout time.Duration) *Worker {
	return &Worker{
		client:      client,
		pending:     cache.QueuePendingKey(queue),
		processing:  cache.QueueProcessingKey(queue),
		runner:      runner,
		admin:       admin,
		pollTimeout: pollTimeout,
		metrics:     metrics.New(),
	}
}

// Run recovers jobs left in processing by a previous process, then consumes
// until ctx is cancelled. It assumes a single consumer per queue name.
func (w *Worker) Run(ctx context.Context) error {
	n, err := w.recoverProcessing(ctx)
	if err != nil {
		return fmt.Errorf("recover in-flight jobs: %w", err)
	}
	if n > 0 {
		slog.Info("requeued in-flight analysis jobs", "count", n)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := w.ProcessOne(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("analysis worker error", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// ProcessOne waits up to the poll timeout for a job and runs it. It reports
// whether a job was handled. Cancelling ctx stops the wait but not a job that
// has already been claimed.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	payload, err := w.client.BLMove(ctx, w.pending, w.processing, "RIGHT", "LEFT", w.pollTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dequeue analysis: %w", err)
	}
	if depth, err := w.client.LLen(ctx, w.pending).Result(); err == nil {
		w.metrics.DispatchQueueDepth.Set(float64(depth))
	}

	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		slog.Error("dropping malformed analysis job", "payload", payload, "error", err)
		return true, w.ack(ctx, payload)
	}

	logger := slog.With("brand_id", job.BrandID)
	ctx = context.WithoutCancel(ctx)

	// Runs interrupted by a crash are reset so they can be claimed again.
	// Terminal runs are untouched and RunAll skips them.
	if n, err := w.admin.RequeueStaleRuns(ctx, job.BrandID); err != nil {
		return true, fmt.Errorf("requeue stale runs: %w", err)
	} else if n > 0 {
		logger.Info("requeued interrupted runs", "count", n)
	}

	if err := w.runner.RunBrand(ctx, job.BrandID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("brand for analysis job no longer exists")
			return true, w.ack(ctx, payload)
		}
		return true, err
	}
	return true, w.ack(ctx, payload)
}

func (w *Worker) ack(ctx context.Context, payload string) error {
	if err := w.client.LRem(ctx, w.processing, 1, payload).Err(); err != nil {
		return fmt.Errorf("ack analysis job: %w", err)
	}
	return nil
}

func (w *Worker) recoverProcessing(ctx context.Context) (int, error) {
	n := 0
	for {
		_, err := w.client.LMove(ctx, w.processing, w.pending, "RIGHT", "RIGHT").Result()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++
	}
}

var (
	_ Dispatcher = (*InProcessDispatcher)(nil)
	_ Dispatcher = (*QueueDispatcher)(nil)
)
