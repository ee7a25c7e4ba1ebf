package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/metrics"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/textutil"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

const maxDocErrorBytes = 1000

// Archive stores a copy of each completed document. Failures are logged only.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

type Service struct {
	store     store.Store
	admin     store.AdminStore
	catalog   *Catalog
	generator *Generator
	archive   Archive
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService wires the doc service. archive may be nil.
func NewService(st store.Store, admin store.AdminStore, catalog *Catalog, generator *Generator, archive Archive) *Service {
	return &Service{
		store:     st,
		admin:     admin,
		catalog:   catalog,
		generator: generator,
		archive:   archive,
		metrics:   metrics.New(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) ListTemplates() []Template {
	return s.catalog.List()
}

// Readiness checks templateID against the brand's current runs.
func (s *Service) Readiness(ctx context.Context, session models.Session, brandID uuid.UUID, templateID string) (*Readiness, error) {
	if _, err := s.store.GetBrand(ctx, brandID, session.UserID); err != nil {
		return nil, err
	}
	tmpl, err := s.catalog.Get(templateID)
	if err != nil {
		return nil, err
	}
	runs, err := s.store.ListAnalysisRuns(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("listing analysis runs: %w", err)
	}
	r := CheckReadiness(runs, tmpl)
	return &r, nil
}

// GenerateDoc snapshots the brand's analyses, inserts a generating doc and
// generates it synchronously. The returned doc is always terminal. When
// generation fails the doc is returned together with an error wrapping
// ErrGeneration.
func (s *Service) GenerateDoc(ctx context.Context, session models.Session, brandID uuid.UUID, templateID string) (*models.GeneratedDoc, error) {
	b, err := s.store.GetBrand(ctx, brandID, session.UserID)
	if err != nil {
		return nil, err
	}
	tmpl, err := s.catalog.Get(templateID)
	if err != nil {
		return nil, err
	}
	runs, err := s.store.ListAnalysisRuns(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("listing analysis runs: %w", err)
	}
	if r := CheckReadiness(runs, tmpl); !r.IsReady {
		return nil, &ReadinessError{Readiness: r}
	}

	snapshot := buildSnapshot(b, runs, s.now())
	source, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding source data: %w", err)
	}

	now := s.now()
	doc := &models.GeneratedDoc{
		ID:         uuid.New(),
		BrandID:    brandID,
		TemplateID: tmpl.ID,
		Title:      fmt.Sprintf("%s: %s", tmpl.Name, snapshot.Brand.Name),
		SourceData: source,
		Status:     models.DocStatusGenerating,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateGeneratedDoc(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating generated doc: %w", err)
	}

	if err := s.generate(ctx, doc, tmpl, snapshot); err != nil {
		return doc, err
	}
	return doc, nil
}

// generate performs the single terminal transition of doc. If generation
// fails or panics, or the completion write fails, the doc is marked error.
func (s *Service) generate(reqCtx context.Context, doc *models.GeneratedDoc, tmpl *Template, snapshot models.DocSourceData) (err error) {
	// Generation is not cancelled by the caller. Each stage is bounded by the
	// provider's inference timeout.
	ctx := context.WithoutCancel(reqCtx)
	start := time.Now()
	logger := slog.With("doc_id", doc.ID, "brand_id", doc.BrandID, "template", tmpl.ID)
	completed := false

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("document generation panicked", "panic", rec)
			err = fmt.Errorf("%w: internal error", ErrGeneration)
		}
		elapsed := time.Since(start)
		s.metrics.DocGenerationDuration.WithLabelValues(tmpl.ID).Observe(elapsed.Seconds())
		if completed {
			s.metrics.DocGenerationsTotal.WithLabelValues(tmpl.ID, models.DocStatusComplete).Inc()
			return
		}
		s.metrics.DocGenerationsTotal.WithLabelValues(tmpl.ID, models.DocStatusError).Inc()

		msg := "document generation failed"
		if err != nil {
			msg = textutil.Truncate(err.Error(), maxDocErrorBytes)
		}
		ms := elapsed.Milliseconds()
		if ferr := s.admin.FailGeneratedDoc(ctx, doc.ID, msg, ms); ferr != nil {
			logger.Error("failed to mark doc as error", "error", ferr)
		}
		doc.Status = models.DocStatusError
		doc.ErrorMessage = &msg
		doc.DurationMS = &ms
		logger.Warn("document generation failed", "error", err)
	}()

	out, err := s.generator.Generate(ctx, Request{Template: tmpl, BrandData: snapshot})
	if err != nil {
		return err
	}

	if err := s.admin.CompleteGeneratedDoc(ctx, doc.ID, store.DocCompletion{
		Title:      out.Content.Title,
		Content:    out.Content,
		Markdown:   out.Markdown,
		DurationMS: out.DurationMS,
	}); err != nil {
		return fmt.Errorf("%w: saving result: %w", ErrGeneration, err)
	}
	completed = true

	doc.Status = models.DocStatusComplete
	doc.Title = out.Content.Title
	doc.Content = out.Content
	doc.ContentMarkdown = &out.Markdown
	doc.DurationMS = &out.DurationMS
	logger.Info("document generated", "duration_ms", out.DurationMS)

	if s.archive != nil {
		key := fmt.Sprintf("brands/%s/docs/%s.md", doc.BrandID, doc.ID)
		if aerr := s.archive.Put(ctx, key, []byte(out.Markdown), "text/markdown; charset=utf-8"); aerr != nil {
			logger.Warn("failed to archive document", "key", key, "error", aerr)
		}
	}
	return nil
}

func (s *Service) GetDoc(ctx context.Context, session models.Session, docID uuid.UUID) (*models.GeneratedDoc, error) {
	return s.store.GetGeneratedDoc(ctx, docID, session.UserID)
}

// ListDocs returns a brand's docs, newest first. A brand the caller does not
// own is ErrNotFound rather than an empty list.
func (s *Service) ListDocs(ctx context.Context, session models.Session, brandID uuid.UUID) ([]*models.GeneratedDoc, error) {
	if _, err := s.store.GetBrand(ctx, brandID, session.UserID); err != nil {
		return nil, err
	}
	return s.store.ListGeneratedDocs(ctx, brandID, session.UserID)
}

func buildSnapshot(b *models.Brand, runs []*models.AnalysisRun, at time.Time) models.DocSourceData {
	name := b.SourceURL
	if b.Name != nil && *b.Name != "" {
		name = *b.Name
	}
	analyses := make(map[models.AnalyzerType]json.RawMessage)
	for _, r := range runs {
		if r.Status == models.RunStatusComplete && len(r.ParsedData) > 0 {
			analyses[r.AnalyzerType] = r.ParsedData
		}
	}
	return models.DocSourceData{
		Brand: models.DocSourceBrand{
			ID:         b.ID,
			Name:       name,
			SourceURL:  b.SourceURL,
			IsOwnBrand: b.IsOwnBrand,
		},
		Analyses:   analyses,
		CapturedAt: at,
	}
}
