// Package docs generates documents from a brand's completed analyses. A
// template can only be generated once its readiness requirements are met.
package docs

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"gopkg.in/yaml.v3"
)

var ErrUnknownTemplate = errors.New("unknown document template")

//go:embed templates.yaml
var defaultCatalogYAML []byte

// Requirement says that Analyzer must be complete with every field in Fields present.
type Requirement struct {
	Analyzer models.AnalyzerType `yaml:"analyzer" json:"analyzer"`
	Fields   []string            `yaml:"fields"   json:"fields"`
}

type Template struct {
	ID           string        `yaml:"id"           json:"id"`
	Name         string        `yaml:"name"         json:"name"`
	Description  string        `yaml:"description"  json:"description"`
	Requirements []Requirement `yaml:"requirements" json:"requirements"`
	Outline      string        `yaml:"outline"      json:"-"`
	Content      string        `yaml:"content"      json:"-"`
}

// Catalog is an immutable, ordered set of templates.
type Catalog struct {
	templates []Template
	byID      map[string]int
}

// ParseCatalog reads a YAML catalog and rejects duplicate or incomplete templates.
func ParseCatalog(data []byte) (*Catalog, error) {
	var doc struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]int, len(doc.Templates))}
	for i, t := range doc.Templates {
		if t.ID == "" || t.Name == "" {
			return nil, fmt.Errorf("template %d: id and name are required", i)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("template %q is declared twice", t.ID)
		}
		for _, req := range t.Requirements {
			if req.Analyzer == "" {
				return nil, fmt.Errorf("template %q: requirement without analyzer", t.ID)
			}
		}
		c.byID[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Get(id string) (*Template, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	t := c.templates[i]
	return &t, nil
}

func (c *Catalog) List() []Template {
	out := make([]Template, len(c.templates))
	copy(out, c.templates)
	return out
}
