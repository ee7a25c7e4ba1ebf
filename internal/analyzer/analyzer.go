// Package analyzer runs the AI extraction passes over a scraped homepage and
// records each pass as its own analysis run.
package analyzer

import (
	"encoding/json"
	"errors"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// ErrParse is returned when model output cannot be turned into a usable result.
var ErrParse = errors.New("could not parse analyzer output")

// Analyzer is one extraction pass. Implementations are stateless.
type Analyzer interface {
	Type() models.AnalyzerType
	// Prompt builds the model request for the given page.
	Prompt(content *models.ScrapedContent) models.CompletionRequest
	// Parse turns raw model text into the normalized JSON stored as parsed_data.
	Parse(raw string) (json.RawMessage, error)
}

// Registry holds the analyzers that run for every brand, in run order.
type Registry struct {
	order  []models.AnalyzerType
	byType map[models.AnalyzerType]Analyzer
}

func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{byType: make(map[models.AnalyzerType]Analyzer, len(analyzers))}
	for _, a := range analyzers {
		if _, dup := r.byType[a.Type()]; dup {
			continue
		}
		r.order = append(r.order, a.Type())
		r.byType[a.Type()] = a
	}
	return r
}

// DefaultRegistry returns basics, customer and products.
func DefaultRegistry() *Registry {
	return NewRegistry(Basics{}, Customer{}, Products{})
}

// Types returns the registered analyzer types in run order.
func (r *Registry) Types() []models.AnalyzerType {
	out := make([]models.AnalyzerType, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Get(t models.AnalyzerType) (Analyzer, bool) {
	a, ok := r.byType[t]
	return a, ok
}
