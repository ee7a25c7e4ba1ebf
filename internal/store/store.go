package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid status transition")

// Store is the data access interface used on behalf of an authenticated user.
// Every brand-scoped read takes the caller's user ID; rows owned by someone
// else are reported as ErrNotFound.
type Store interface {
	Ping(ctx context.Context) error

	CreateBrand(ctx context.Context, brand *models.Brand) error
	GetBrand(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Brand, error)
	ListBrands(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Brand, error)

	CreateAnalysisRuns(ctx context.Context, brandID uuid.UUID, types []models.AnalyzerType) ([]*models.AnalysisRun, error)
	ListAnalysisRuns(ctx context.Context, brandID uuid.UUID) ([]*models.AnalysisRun, error)

	CreateGeneratedDoc(ctx context.Context, doc *models.GeneratedDoc) error
	GetGeneratedDoc(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.GeneratedDoc, error)
	ListGeneratedDocs(ctx context.Context, brandID uuid.UUID, userID uuid.UUID) ([]*models.GeneratedDoc, error)

	GetGoogleConnection(ctx context.Context, userID uuid.UUID) (*models.GoogleConnection, error)
	SaveGoogleConnection(ctx context.Context, conn *models.GoogleConnection) error
	DeleteGoogleConnection(ctx context.Context, userID uuid.UUID) error
}

// AdminStore is the trusted server-side write path. None of its methods are
// scoped to a user, so it is handed only to background workers and to services
// that have already established ownership through Store.
type AdminStore interface {
	GetBrandAdmin(ctx context.Context, id uuid.UUID) (*models.Brand, error)
	UpdateBrandAdmin(ctx context.Context, id uuid.UUID, upd models.BrandUpdate) error

	UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, opts ...RunUpdateOption) error
	RequeueStaleRuns(ctx context.Context, brandID uuid.UUID) (int64, error)

	CompleteGeneratedDoc(ctx context.Context, id uuid.UUID, res DocCompletion) error
	FailGeneratedDoc(ctx context.Context, id uuid.UUID, errMsg string, durationMS int64) error
	MarkDocExported(ctx context.Context, id uuid.UUID, googleDocID, googleDocURL string, at time.Time) error
}

// DocCompletion is the single terminal write of a successful generation.
type DocCompletion struct {
	Title      string
	Content    *models.DocContent
	Markdown   string
	DurationMS int64
}

// RunUpdateParams collects the optional columns written with a run transition.
type RunUpdateParams struct {
	ErrorMessage *string
	ParsedData   json.RawMessage
	RawOutput    *string
	Model        *string
}

type RunUpdateOption func(*RunUpdateParams)

// ApplyRunUpdateOptions folds opts into a RunUpdateParams.
func ApplyRunUpdateOptions(opts ...RunUpdateOption) RunUpdateParams {
	var p RunUpdateParams
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func WithErrorMessage(msg string) RunUpdateOption {
	return func(p *RunUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithParsedData(data json.RawMessage) RunUpdateOption {
	return func(p *RunUpdateParams) {
		p.ParsedData = data
	}
}

func WithRawOutput(raw string) RunUpdateOption {
	return func(p *RunUpdateParams) {
		p.RawOutput = &raw
	}
}

func WithModel(model string) RunUpdateOption {
	return func(p *RunUpdateParams) {
		p.Model = &model
	}
}
