package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	DocStatusGenerating = "generating"
	DocStatusComplete   = "complete"
	DocStatusError      = "error"
)

// GeneratedDoc is a document derived from a brand's analysis results.
// SourceData is the snapshot taken when generation started and is never recomputed.
type GeneratedDoc struct {
	ID               uuid.UUID       `db:"id"                 json:"id"`
	BrandID          uuid.UUID       `db:"brand_id"           json:"brand_id"`
	TemplateID       string          `db:"template_id"        json:"template_id"`
	Title            string          `db:"title"              json:"title"`
	Content          *DocContent     `db:"content"            json:"content,omitempty"`
	ContentMarkdown  *string         `db:"content_markdown"   json:"content_markdown,omitempty"`
	SourceData       json.RawMessage `db:"source_data"        json:"source_data"`
	Status           string          `db:"status"             json:"status"`
	ErrorMessage     *string         `db:"error_message"      json:"error_message,omitempty"`
	DurationMS       *int64          `db:"duration_ms"        json:"duration_ms,omitempty"`
	GoogleDocID      *string         `db:"google_doc_id"      json:"google_doc_id,omitempty"`
	GoogleDocURL     *string         `db:"google_doc_url"     json:"google_doc_url,omitempty"`
	GoogleExportedAt *time.Time      `db:"google_exported_at" json:"google_exported_at,omitempty"`
	CreatedAt        time.Time       `db:"created_at"         json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"         json:"updated_at"`
}

// DocContent is the structured output of the content stage of generation.
type DocContent struct {
	Title    string       `json:"title"`
	Summary  string       `json:"summary"`
	Sections []DocSection `json:"sections"`
}

type DocSection struct {
	Heading string   `json:"heading"`
	Body    string   `json:"body"`
	Bullets []string `json:"bullets,omitempty"`
}

// DocSourceData is the snapshot persisted in GeneratedDoc.SourceData.
type DocSourceData struct {
	Brand      DocSourceBrand                   `json:"brand"`
	Analyses   map[AnalyzerType]json.RawMessage `json:"analyses"`
	CapturedAt time.Time                        `json:"captured_at"`
}

type DocSourceBrand struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SourceURL  string    `json:"source_url"`
	IsOwnBrand bool      `json:"is_own_brand"`
}
