package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	brandColumns = `id, user_id, source_url, name, scrape_status, scraped_content, scraped_at,
		scrape_error, is_own_brand, created_at, updated_at`
	runColumns = `id, brand_id, analyzer_type, status, parsed_data, raw_output, model,
		error_message, started_at, completed_at, created_at, updated_at`
	docColumns = `d.id, d.brand_id, d.template_id, d.title, d.content, d.content_markdown,
		d.source_data, d.status, d.error_message, d.duration_ms, d.google_doc_id,
		d.google_doc_url, d.google_exported_at, d.created_at, d.updated_at`
)

const defaultBrandListLimit = 50

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Admin returns the trusted write capability over the same pool.
func (s *PostgresStore) Admin() AdminStore {
	return &adminStore{pool: s.pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// --- Brands ---

func scanBrand(row rowScanner) (*models.Brand, error) {
	var b models.Brand
	err := row.Scan(&b.ID, &b.UserID, &b.SourceURL, &b.Name, &b.ScrapeStatus, &b.ScrapedContent,
		&b.ScrapedAt, &b.ScrapeError, &b.IsOwnBrand, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *PostgresStore) CreateBrand(ctx context.Context, b *models.Brand) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO brands (id, user_id, source_url, name, scrape_status, is_own_brand, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.UserID, b.SourceURL, b.Name, b.ScrapeStatus, b.IsOwnBrand, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create brand: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBrand(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Brand, error) {
	b, err := scanBrand(s.pool.QueryRow(ctx,
		`SELECT `+brandColumns+` FROM brands WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) ListBrands(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Brand, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultBrandListLimit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+brandColumns+` FROM brands WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	brands := []*models.Brand{}
	for rows.Next() {
		b, err := scanBrand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

// --- Analysis Runs ---

func scanRun(row rowScanner) (*models.AnalysisRun, error) {
	var r models.AnalysisRun
	err := row.Scan(&r.ID, &r.BrandID, &r.AnalyzerType, &r.Status, &r.ParsedData, &r.RawOutput,
		&r.Model, &r.ErrorMessage, &r.StartedAt, &r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateAnalysisRuns inserts one queued run per analyzer type in a single
// transaction, in the order given.
func (s *PostgresStore) CreateAnalysisRuns(ctx context.Context, brandID uuid.UUID, types []models.AnalyzerType) ([]*models.AnalysisRun, error) {
	runs := make([]*models.AnalysisRun, 0, len(types))

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		for _, t := range types {
			r, err := scanRun(tx.QueryRow(ctx,
				`INSERT INTO analysis_runs (id, brand_id, analyzer_type, status, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $5)
				 RETURNING `+runColumns,
				uuid.New(), brandID, t, models.RunStatusQueued, now))
			if err != nil {
				return err
			}
			runs = append(runs, r)
		}
		return nil
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("create analysis runs: %w", err)
	}
	return runs, nil
}

// ListAnalysisRuns returns a brand's runs in insertion order.
func (s *PostgresStore) ListAnalysisRuns(ctx context.Context, brandID uuid.UUID) ([]*models.AnalysisRun, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+runColumns+` FROM analysis_runs WHERE brand_id = $1 ORDER BY seq ASC`, brandID)
	if err != nil {
		return nil, fmt.Errorf("list analysis runs: %w", err)
	}
	defer rows.Close()

	runs := []*models.AnalysisRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- Generated Docs ---

func scanDoc(row rowScanner) (*models.GeneratedDoc, error) {
	var d models.GeneratedDoc
	err := row.Scan(&d.ID, &d.BrandID, &d.TemplateID, &d.Title, &d.Content, &d.ContentMarkdown,
		&d.SourceData, &d.Status, &d.ErrorMessage, &d.DurationMS, &d.GoogleDocID,
		&d.GoogleDocURL, &d.GoogleExportedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) CreateGeneratedDoc(ctx context.Context, d *models.GeneratedDoc) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO generated_docs (id, brand_id, template_id, title, source_data, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.BrandID, d.TemplateID, d.Title, d.SourceData, d.Status, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create generated doc: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGeneratedDoc(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.GeneratedDoc, error) {
	d, err := scanDoc(s.pool.QueryRow(ctx,
		`SELECT `+docColumns+`
		 FROM generated_docs d JOIN brands b ON b.id = d.brand_id
		 WHERE d.id = $1 AND b.user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get generated doc: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) ListGeneratedDocs(ctx context.Context, brandID uuid.UUID, userID uuid.UUID) ([]*models.GeneratedDoc, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+docColumns+`
		 FROM generated_docs d JOIN brands b ON b.id = d.brand_id
		 WHERE d.brand_id = $1 AND b.user_id = $2
		 ORDER BY d.created_at DESC`, brandID, userID)
	if err != nil {
		return nil, fmt.Errorf("list generated docs: %w", err)
	}
	defer rows.Close()

	docs := []*models.GeneratedDoc{}
	for rows.Next() {
		d, err := scanDoc(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generated doc: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// --- Google Connections ---

func (s *PostgresStore) GetGoogleConnection(ctx context.Context, userID uuid.UUID) (*models.GoogleConnection, error) {
	var c models.GoogleConnection
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, email, refresh_token, connected_at, updated_at
		 FROM google_connections WHERE user_id = $1`, userID,
	).Scan(&c.UserID, &c.Email, &c.RefreshToken, &c.ConnectedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get google connection: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) SaveGoogleConnection(ctx context.Context, c *models.GoogleConnection) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO google_connections (user_id, email, refresh_token, connected_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		   email = EXCLUDED.email,
		   refresh_token = EXCLUDED.refresh_token,
		   connected_at = EXCLUDED.connected_at,
		   updated_at = EXCLUDED.updated_at`,
		c.UserID, c.Email, c.RefreshToken, c.ConnectedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save google connection: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteGoogleConnection(ctx context.Context, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM google_connections WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete google connection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
