package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AnalyzerType names an AI extraction pass.
type AnalyzerType string

const (
	AnalyzerBasics   AnalyzerType = "basics"
	AnalyzerCustomer AnalyzerType = "customer"
	AnalyzerProducts AnalyzerType = "products"
)

const (
	RunStatusQueued    = "queued"
	RunStatusAnalyzing = "analyzing"
	RunStatusParsing   = "parsing"
	RunStatusComplete  = "complete"
	RunStatusError     = "error"
)

// runTransitions lists, for each target status, the statuses it may be entered from.
var runTransitions = map[string][]string{
	RunStatusAnalyzing: {RunStatusQueued},
	RunStatusParsing:   {RunStatusAnalyzing},
	RunStatusComplete:  {RunStatusParsing},
	RunStatusError:     {RunStatusAnalyzing, RunStatusParsing},
}

// AllowedRunSources returns the statuses from which a run may move to target.
// An empty result means target can never be entered by a transition.
func AllowedRunSources(target string) []string {
	return runTransitions[target]
}

// CanTransitionRun reports whether from -> to is a legal run transition.
func CanTransitionRun(from, to string) bool {
	for _, s := range runTransitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// IsActiveRunStatus reports whether a run in this status has not finished yet.
func IsActiveRunStatus(status string) bool {
	switch status {
	case RunStatusQueued, RunStatusAnalyzing, RunStatusParsing:
		return true
	}
	return false
}

// AnalysisRun is one execution of one analyzer against one brand.
// Each row is written only by its own analyzer.
type AnalysisRun struct {
	ID           uuid.UUID       `db:"id"            json:"id"`
	BrandID      uuid.UUID       `db:"brand_id"      json:"brand_id"`
	AnalyzerType AnalyzerType    `db:"analyzer_type" json:"analyzer_type"`
	Status       string          `db:"status"        json:"status"`
	ParsedData   json.RawMessage `db:"parsed_data"   json:"parsed_data,omitempty"`
	RawOutput    *string         `db:"raw_output"    json:"-"`
	Model        *string         `db:"model"         json:"model,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	StartedAt    *time.Time      `db:"started_at"    json:"started_at,omitempty"`
	CompletedAt  *time.Time      `db:"completed_at"  json:"completed_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"    json:"updated_at"`
}

// IsAnalyzing is true iff at least one run has not reached a terminal status.
func IsAnalyzing(runs []*AnalysisRun) bool {
	for _, r := range runs {
		if IsActiveRunStatus(r.Status) {
			return true
		}
	}
	return false
}

// RunEvent is published whenever a run changes status. It is only a change
// notification; subscribers re-read the run list for the actual state.
type RunEvent struct {
	BrandID      uuid.UUID    `json:"brand_id"`
	RunID        uuid.UUID    `json:"run_id"`
	AnalyzerType AnalyzerType `json:"analyzer_type"`
	Status       string       `json:"status"`
	At           time.Time    `json:"at"`
}
