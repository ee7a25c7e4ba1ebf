package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// adminStore implements AdminStore. It is only reachable through PostgresStore.Admin.
type adminStore struct {
	pool *pgxpool.Pool
}

func (a *adminStore) GetBrandAdmin(ctx context.Context, id uuid.UUID) (*models.Brand, error) {
	b, err := scanBrand(a.pool.QueryRow(ctx,
		`SELECT `+brandColumns+` FROM brands WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return b, nil
}

func (a *adminStore) UpdateBrandAdmin(ctx context.Context, id uuid.UUID, upd models.BrandUpdate) error {
	query := `UPDATE brands SET updated_at = $2`
	args := []any{id, time.Now().UTC()}
	argIdx := 3

	set := func(column string, value any) {
		query += fmt.Sprintf(", %s = $%d", column, argIdx)
		args = append(args, value)
		argIdx++
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.ScrapeStatus != nil {
		set("scrape_status", *upd.ScrapeStatus)
	}
	if upd.ScrapedContent != nil {
		set("scraped_content", upd.ScrapedContent)
	}
	if upd.ScrapedAt != nil {
		set("scraped_at", *upd.ScrapedAt)
	}
	if upd.ScrapeError != nil {
		set("scrape_error", *upd.ScrapeError)
	}

	query += " WHERE id = $1"

	tag, err := a.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update brand: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRunStatus moves a run to status if, and only if, its current status is
// one of the legal sources for that transition. The check and the write are a
// single statement.
func (a *adminStore) UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error {
	from := models.AllowedRunSources(status)
	if len(from) == 0 {
		return fmt.Errorf("%w: no transition enters %q", ErrInvalidTransition, status)
	}

	params := ApplyRunUpdateOptions(opts...)

	now := time.Now().UTC()
	query := `UPDATE analysis_runs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.RunStatusAnalyzing {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.RunStatusComplete || status == models.RunStatusError {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.ParsedData != nil {
		query += fmt.Sprintf(", parsed_data = $%d", argIdx)
		args = append(args, params.ParsedData)
		argIdx++
	}
	if params.RawOutput != nil {
		query += fmt.Sprintf(", raw_output = $%d", argIdx)
		args = append(args, *params.RawOutput)
		argIdx++
	}
	if params.Model != nil {
		query += fmt.Sprintf(", model = $%d", argIdx)
		args = append(args, *params.Model)
		argIdx++
	}

	query += fmt.Sprintf(" WHERE id = $1 AND status = ANY($%d)", argIdx)
	args = append(args, from)

	tag, err := a.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = a.pool.QueryRow(ctx, `SELECT status FROM analysis_runs WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get run status: %w", err)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
}

// RequeueStaleRuns puts runs that were interrupted mid-flight back to queued.
// Only used when a durable dispatch is redelivered.
func (a *adminStore) RequeueStaleRuns(ctx context.Context, brandID uuid.UUID) (int64, error) {
	tag, err := a.pool.Exec(ctx,
		`UPDATE analysis_runs
		 SET status = 'queued', started_at = NULL, error_message = NULL, updated_at = NOW()
		 WHERE brand_id = $1 AND status IN ('analyzing', 'parsing')`, brandID)
	if err != nil {
		return 0, fmt.Errorf("requeue stale runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (a *adminStore) CompleteGeneratedDoc(ctx context.Context, id uuid.UUID, res DocCompletion) error {
	tag, err := a.pool.Exec(ctx,
		`UPDATE generated_docs
		 SET status = 'complete', title = $2, content = $3, content_markdown = $4,
		     duration_ms = $5, error_message = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'generating'`,
		id, res.Title, res.Content, res.Markdown, res.DurationMS)
	if err != nil {
		return fmt.Errorf("complete generated doc: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: doc %s is not generating", ErrInvalidTransition, id)
	}
	return nil
}

func (a *adminStore) FailGeneratedDoc(ctx context.Context, id uuid.UUID, errMsg string, durationMS int64) error {
	tag, err := a.pool.Exec(ctx,
		`UPDATE generated_docs
		 SET status = 'error', error_message = $2, duration_ms = $3, updated_at = NOW()
		 WHERE id = $1 AND status = 'generating'`,
		id, errMsg, durationMS)
	if err != nil {
		return fmt.Errorf("fail generated doc: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: doc %s is not generating", ErrInvalidTransition, id)
	}
	return nil
}

func (a *adminStore) MarkDocExported(ctx context.Context, id uuid.UUID, googleDocID, googleDocURL string, at time.Time) error {
	tag, err := a.pool.Exec(ctx,
		`UPDATE generated_docs
		 SET google_doc_id = $2, google_doc_url = $3, google_exported_at = $4, updated_at = NOW()
		 WHERE id = $1`,
		id, googleDocID, googleDocURL, at)
	if err != nil {
		return fmt.Errorf("mark doc exported: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Compile-time check that adminStore implements AdminStore.
var _ AdminStore = (*adminStore)(nil)
