package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScrapeStatusIdle     = "idle"
	ScrapeStatusScraping = "scraping"
	ScrapeStatusComplete = "complete"
	ScrapeStatusFailed   = "failed"
)

// Brand is an analyzed website/business owned by a single user.
// A new Brand is created for every analysis request; analyzers never write to it.
type Brand struct {
	ID             uuid.UUID       `db:"id"              json:"id"`
	UserID         uuid.UUID       `db:"user_id"         json:"user_id"`
	SourceURL      string          `db:"source_url"      json:"source_url"`
	Name           *string         `db:"name"            json:"name,omitempty"`
	ScrapeStatus   string          `db:"scrape_status"   json:"scrape_status"`
	ScrapedContent *ScrapedContent `db:"scraped_content" json:"scraped_content,omitempty"`
	ScrapedAt      *time.Time      `db:"scraped_at"      json:"scraped_at,omitempty"`
	ScrapeError    *string         `db:"scrape_error"    json:"scrape_error,omitempty"`
	IsOwnBrand     bool            `db:"is_own_brand"    json:"is_own_brand"`
	CreatedAt      time.Time       `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"      json:"updated_at"`
}

// ScrapedContent is the homepage snapshot handed to every analyzer.
type ScrapedContent struct {
	FetchedURL  string   `json:"fetched_url"`
	StatusCode  int      `json:"status_code"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	SiteName    string   `json:"site_name,omitempty"`
	Headings    []string `json:"headings"`
	BodyText    string   `json:"body_text"`
	Links       []string `json:"links"`
}

// BrandUpdate carries the fields a trusted server-side writer may change.
// Nil fields are left untouched.
type BrandUpdate struct {
	Name           *string
	ScrapeStatus   *string
	ScrapedContent *ScrapedContent
	ScrapedAt      *time.Time
	ScrapeError    *string
}
