package docs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

var ErrNotReady = errors.New("document requirements not met")

// Readiness lists what a brand is missing for a template.
type Readiness struct {
	IsReady          bool                  `json:"is_ready"`
	MissingAnalyzers []models.AnalyzerType `json:"missing_analyzers"`
	MissingFields    []string              `json:"missing_fields"`
}

// ReadinessError carries the structured result of a failed readiness check.
type ReadinessError struct {
	Readiness Readiness
}

func (e *ReadinessError) Error() string {
	var parts []string
	if len(e.Readiness.MissingAnalyzers) > 0 {
		names := make([]string, len(e.Readiness.MissingAnalyzers))
		for i, a := range e.Readiness.MissingAnalyzers {
			names[i] = string(a)
		}
		parts = append(parts, "missing analyses: "+strings.Join(names, ", "))
	}
	if len(e.Readiness.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.Readiness.MissingFields, ", "))
	}
	return fmt.Sprintf("%s (%s)", ErrNotReady, strings.Join(parts, "; "))
}

func (e *ReadinessError) Unwrap() error { return ErrNotReady }

// CheckReadiness reports whether runs satisfy tmpl. An analyzer is missing
// unless its run is complete; fields are only checked for complete runs and
// are reported as "analyzer.field". It has no side effects.
func CheckReadiness(runs []*models.AnalysisRun, tmpl *Template) Readiness {
	complete := make(map[models.AnalyzerType]*models.AnalysisRun, len(runs))
	for _, r := range runs {
		if r.Status == models.RunStatusComplete {
			complete[r.AnalyzerType] = r
		}
	}

	res := Readiness{
		MissingAnalyzers: []models.AnalyzerType{},
		MissingFields:    []string{},
	}
	for _, req := range tmpl.Requirements {
		run, ok := complete[req.Analyzer]
		if !ok {
			res.MissingAnalyzers = append(res.MissingAnalyzers, req.Analyzer)
			continue
		}

		var data map[string]any
		if len(run.ParsedData) > 0 {
			if err := json.Unmarshal(run.ParsedData, &data); err != nil {
				data = nil
			}
		}
		for _, field := range req.Fields {
			if !present(data[field]) {
				res.MissingFields = append(res.MissingFields, string(req.Analyzer)+"."+field)
			}
		}
	}
	res.IsReady = len(res.MissingAnalyzers) == 0 && len(res.MissingFields) == 0
	return res
}

// present treats null, blank strings, empty lists and empty objects as absent.
func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
