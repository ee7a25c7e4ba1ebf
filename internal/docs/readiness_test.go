package docs

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t models.AnalyzerType, status string, parsed string) *models.AnalysisRun {
	r := &models.AnalysisRun{ID: uuid.New(), AnalyzerType: t, Status: status}
	if parsed != "" {
		r.ParsedData = json.RawMessage(parsed)
	}
	return r
}

var briefTemplate = &Template{
	ID:   "brief",
	Name: "Brief",
	Requirements: []Requirement{
		{Analyzer: models.AnalyzerBasics, Fields: []string{"business_name", "brand_voice"}},
		{Analyzer: models.AnalyzerCustomer, Fields: []string{"pain_points"}},
	},
}

func TestCheckReadiness_Ready(t *testing.T) {
	runs := []*models.AnalysisRun{
		run(models.AnalyzerBasics, models.RunStatusComplete, `{"business_name":"Acme","brand_voice":"Warm"}`),
		run(models.AnalyzerCustomer, models.RunStatusComplete, `{"pain_points":["stale beans"]}`),
		run(models.AnalyzerProducts, models.RunStatusError, ""),
	}

	r := CheckReadiness(runs, briefTemplate)
	assert.True(t, r.IsReady)
	assert.Empty(t, r.MissingAnalyzers)
	assert.Empty(t, r.MissingFields)
}

func TestCheckReadiness_FailedBasicsIsMissing(t *testing.T) {
	runs := []*models.AnalysisRun{
		run(models.AnalyzerBasics, models.RunStatusError, ""),
		run(models.AnalyzerCustomer, models.RunStatusComplete, `{"pain_points":["stale beans"]}`),
	}

	r := CheckReadiness(runs, briefTemplate)
	assert.False(t, r.IsReady)
	assert.Equal(t, []models.AnalyzerType{models.AnalyzerBasics}, r.MissingAnalyzers)
	assert.Empty(t, r.MissingFields)
}

func TestCheckReadiness_InFlightAndAbsentRunsAreMissing(t *testing.T) {
	runs := []*models.AnalysisRun{
		run(models.AnalyzerBasics, models.RunStatusParsing, ""),
	}

	r := CheckReadiness(runs, briefTemplate)
	assert.False(t, r.IsReady)
	assert.Equal(t, []models.AnalyzerType{models.AnalyzerBasics, models.AnalyzerCustomer}, r.MissingAnalyzers)
}

func TestCheckReadiness_EmptyValuesAreMissing(t *testing.T) {
	tests := []struct {
		name   string
		basics string
	}{
		{"null", `{"business_name":"Acme","brand_voice":null}`},
		{"absent", `{"business_name":"Acme"}`},
		{"blank string", `{"business_name":"Acme","brand_voice":"  "}`},
		{"empty list", `{"business_name":"Acme","brand_voice":[]}`},
		{"empty object", `{"business_name":"Acme","brand_voice":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := []*models.AnalysisRun{
				run(models.AnalyzerBasics, models.RunStatusComplete, tt.basics),
				run(models.AnalyzerCustomer, models.RunStatusComplete, `{"pain_points":[]}`),
			}
			r := CheckReadiness(runs, briefTemplate)
			assert.False(t, r.IsReady)
			assert.Empty(t, r.MissingAnalyzers)
			assert.Equal(t, []string{"basics.brand_voice", "customer.pain_points"}, r.MissingFields)
		})
	}
}

func TestCheckReadiness_NonStringValuesArePresent(t *testing.T) {
	tmpl := &Template{ID: "x", Requirements: []Requirement{
		{Analyzer: models.AnalyzerProducts, Fields: []string{"count", "featured"}},
	}}
	runs := []*models.AnalysisRun{
		run(models.AnalyzerProducts, models.RunStatusComplete, `{"count":0,"featured":false}`),
	}
	assert.True(t, CheckReadiness(runs, tmpl).IsReady)
}

func TestCheckReadiness_IsPure(t *testing.T) {
	runs := []*models.AnalysisRun{
		run(models.AnalyzerBasics, models.RunStatusComplete, `{"business_name":"Acme"}`),
		run(models.AnalyzerCustomer, models.RunStatusQueued, ""),
	}
	before, err := json.Marshal(runs)
	require.NoError(t, err)

	first := CheckReadiness(runs, briefTemplate)
	second := CheckReadiness(runs, briefTemplate)
	assert.Equal(t, first, second)

	after, err := json.Marshal(runs)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestReadinessError(t *testing.T) {
	err := error(&ReadinessError{Readiness: Readiness{
		MissingAnalyzers: []models.AnalyzerType{models.AnalyzerBasics},
		MissingFields:    []string{"customer.pain_points"},
	}})

	assert.True(t, errors.Is(err, ErrNotReady))
	var re *ReadinessError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, []models.AnalyzerType{models.AnalyzerBasics}, re.Readiness.MissingAnalyzers)
	assert.Contains(t, err.Error(), "basics")
	assert.Contains(t, err.Error(), "customer.pain_points")
}
