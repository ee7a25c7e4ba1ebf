// Package storetest provides an in-memory Store and AdminStore with the same
// ownership and transition rules as the Postgres implementation.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/store"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// Memory is safe for concurrent use. Set FailOn[method] to make that method
// return the error, or FailRunStatus[status] to fail only run writes that
// target status.
type Memory struct {
	mu      sync.Mutex
	brands  map[uuid.UUID]*models.Brand
	runs    map[uuid.UUID]*models.AnalysisRun
	runSeq  map[uuid.UUID]int64
	seq     int64
	docs    map[uuid.UUID]*models.GeneratedDoc
	google  map[uuid.UUID]*models.GoogleConnection
	FailOn  map[string]error
	PingErr error

	FailRunStatus map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		brands: map[uuid.UUID]*models.Brand{},
		runs:   map[uuid.UUID]*models.AnalysisRun{},
		runSeq: map[uuid.UUID]int64{},
		docs:   map[uuid.UUID]*models.GeneratedDoc{},
		google: map[uuid.UUID]*models.GoogleConnection{},
		FailOn: map[string]error{},

		FailRunStatus: map[string]error{},
	}
}

// Admin returns the trusted write capability.
func (m *Memory) Admin() store.AdminStore { return (*memoryAdmin)(m) }

func (m *Memory) fail(method string) error {
	return m.FailOn[method]
}

func (m *Memory) Ping(context.Context) error { return m.PingErr }

// --- Brands ---

func (m *Memory) CreateBrand(_ context.Context, b *models.Brand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateBrand"); err != nil {
		return err
	}
	if _, ok := m.brands[b.ID]; ok {
		return store.ErrDuplicateKey
	}
	cp := *b
	m.brands[b.ID] = &cp
	return nil
}

func (m *Memory) GetBrand(_ context.Context, id, userID uuid.UUID) (*models.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brands[id]
	if !ok || b.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) ListBrands(_ context.Context, userID uuid.UUID, limit int) ([]*models.Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Brand{}
	for _, b := range m.brands {
		if b.UserID == userID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Runs ---

func (m *Memory) CreateAnalysisRuns(_ context.Context, brandID uuid.UUID, types []models.AnalyzerType) ([]*models.AnalysisRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateAnalysisRuns"); err != nil {
		return nil, err
	}
	for _, r := range m.runs {
		for _, t := range types {
			if r.BrandID == brandID && r.AnalyzerType == t {
				return nil, store.ErrDuplicateKey
			}
		}
	}
	now := time.Now().UTC()
	out := make([]*models.AnalysisRun, 0, len(types))
	for _, t := range types {
		m.seq++
		r := &models.AnalysisRun{
			ID:           uuid.New(),
			BrandID:      brandID,
			AnalyzerType: t,
			Status:       models.RunStatusQueued,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		m.runs[r.ID] = r
		m.runSeq[r.ID] = m.seq
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) ListAnalysisRuns(_ context.Context, brandID uuid.UUID) ([]*models.AnalysisRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListAnalysisRuns"); err != nil {
		return nil, err
	}
	out := []*models.AnalysisRun{}
	for _, r := range m.runs {
		if r.BrandID == brandID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return m.runSeq[out[i].ID] < m.runSeq[out[j].ID] })
	return out, nil
}

// SetRunStatus forces a run into a state, bypassing transition checks.
// Test setup only.
func (m *Memory) SetRunStatus(runID uuid.UUID, status string, parsed json.RawMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.runs[runID]; ok {
		r.Status = status
		r.ParsedData = parsed
	}
}

// --- Docs ---

func (m *Memory) CreateGeneratedDoc(_ context.Context, d *models.GeneratedDoc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateGeneratedDoc"); err != nil {
		return err
	}
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *Memory) GetGeneratedDoc(_ context.Context, id, userID uuid.UUID) (*models.GeneratedDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if b, ok := m.brands[d.BrandID]; !ok || b.UserID != userID {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) ListGeneratedDocs(_ context.Context, brandID, userID uuid.UUID) ([]*models.GeneratedDoc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.GeneratedDoc{}
	if b, ok := m.brands[brandID]; !ok || b.UserID != userID {
		return out, nil
	}
	for _, d := range m.docs {
		if d.BrandID == brandID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Doc returns a doc regardless of owner. Test assertions only.
func (m *Memory) Doc(id uuid.UUID) (*models.GeneratedDoc, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, false
	}
	cp := *d
	return &cp, true
}

// Docs returns every stored doc. Test assertions only.
func (m *Memory) Docs() []*models.GeneratedDoc {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.GeneratedDoc, 0, len(m.docs))
	for _, d := range m.docs {
		cp := *d
		out = append(out, &cp)
	}
	return out
}

// --- Google connections ---

func (m *Memory) GetGoogleConnection(_ context.Context, userID uuid.UUID) (*models.GoogleConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.google[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) SaveGoogleConnection(_ context.Context, c *models.GoogleConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveGoogleConnection"); err != nil {
		return err
	}
	cp := *c
	m.google[c.UserID] = &cp
	return nil
}

func (m *Memory) DeleteGoogleConnection(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.google[userID]; !ok {
		return store.ErrNotFound
	}
	delete(m.google, userID)
	return nil
}

// --- Admin ---

type memoryAdmin Memory

func (a *memoryAdmin) m() *Memory { return (*Memory)(a) }

func (a *memoryAdmin) GetBrandAdmin(_ context.Context, id uuid.UUID) (*models.Brand, error) {
	m := a.m()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brands[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (a *memoryAdmin) UpdateBrandAdmin(_ context.Context, id uuid.UUID, upd models.BrandUpdate) error {
	m := a.m()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateBrandAdmin"); err != nil {
		return err
	}
	b, ok := m.brands[id]
	if !ok {
		return store.ErrNotFound
	}
	if upd.Name != nil {
		b.Name = upd.Name
	}
	if upd.ScrapeStatus != nil {
		b.ScrapeStatus = *upd.ScrapeStatus
	}
	if upd.ScrapedContent != nil {
		b.ScrapedContent = upd.ScrapedContent
	}
	if upd.ScrapedAt != nil {
		b.ScrapedAt = upd.ScrapedAt
	}
	if upd.ScrapeError != nil {
		b.ScrapeError = upd.ScrapeError
	}
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (a *memoryAdmin) UpdateRunStatus(_ context.Context, id uuid.UUID, status string, opts ...store.RunUpdateOption) error {
	m := a.m()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateRunStatus"); err != nil {
		return err
	}
	if err := m.FailRunStatus[status]; err != nil {
		return err
	}
	r, ok := m.runs[id]
	if !ok {
		return store.ErrNotFound
	}
	if !models.CanTransitionRun(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, r.Status, status)
	}

	params := store.ApplyRunUpdateOptions(opts...)
	now := time.Now().UTC()
	r.Status = status
	r.UpdatedAt = now
	if status == models.RunStatusAnalyzing {
		r.StartedAt = &now
	}
	if status == models.RunStatusComplete || status == models.RunStatusError {
		r.CompletedAt = &now
	}
	if params.ErrorMessage != nil {
		r.ErrorMessage = params.ErrorMessage
	}
	if params.ParsedData != nil {
		r.ParsedData = params.ParsedData
	}
	if params.RawOutput != nil {
		r.RawOutput = params.RawOutput
	}
	if params.Model != nil {
		r.Model = params.Model
	}
	return nil
}

func (a *memoryAdmin) RequeueStaleRuns(_ context.Context, brandID uuid.UUID) (int64, error) {
	m := a.m()
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.runs {
		if r.BrandID == brandID && (r.Status == models.RunStatusAnalyzing || r.Status == models.RunStatusParsing) {
			r.Status = models.RunStatusQueued
			r.StartedAt = nil
			r.ErrorMessage = nil
			n++
		}
	}
	return n, nil
}

func (a *memoryAdmin) CompleteGeneratedDoc(_ context.Context, id uuid.UUID, res store.DocCompletion) error {
	m := a.m()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CompleteGeneratedDoc"); err != nil {
		return err
	}
	d, ok := m.docs[id]
	if !ok || d.Status != models.DocStatusGenerating {
		return fmt.Errorf("%w: doc %s is not generating", store.ErrInvalidTransition, id)
	}
	md := res.Markdown
	dur := res.DurationMS
	d.Status = models.DocStatusComplete
	d.Title = res.Title
	d.Content = res.Content
	d.ContentMarkdown = &md
	d.DurationMS = &dur
	d.ErrorMessage = nil
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (a *memoryAdmin) FailGeneratedDoc(_ context.Context, id uuid.UUID, errMsg string, durationMS int64) error {
	m := a.m()
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.Status != models.DocStatusGenerating {
		return fmt.Errorf("%w: doc %s is not generating", store.ErrInvalidTransition, id)
	}
	d.Status = models.DocStatusError
	d.ErrorMessage = &errMsg
	d.DurationMS = &durationMS
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (a *memoryAdmin) MarkDocExported(_ context.Context, id uuid.UUID, googleDocID, googleDocURL string, at time.Time) error {
	m := a.m()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkDocExported"); err != nil {
		return err
	}
	d, ok := m.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	d.GoogleDocID = &googleDocID
	d.GoogleDocURL = &googleDocURL
	d.GoogleExportedAt = &at
	return nil
}

var (
	_ store.Store      = (*Memory)(nil)
	_ store.AdminStore = (*memoryAdmin)(nil)
)
