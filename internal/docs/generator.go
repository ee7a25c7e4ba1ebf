package docs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/analyzer"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// ErrGeneration wraps any failure of either generation stage.
var ErrGeneration = errors.New("document generation failed")

const (
	outlineMaxTokens = 1500
	contentMaxTokens = 4000
)

type Request struct {
	Template  *Template
	BrandData models.DocSourceData
}

// Output is a successful generation.
type Output struct {
	Content    *models.DocContent
	Markdown   string
	DurationMS int64
}

type outline struct {
	Title    string `json:"title"`
	Sections []struct {
		Heading string   `json:"heading"`
		Points  []string `json:"points"`
	} `json:"sections"`
}

// Generator produces a document in two dependent model calls: an outline,
// then the content written against that outline.
type Generator struct {
	provider models.AIProvider
}

func NewGenerator(provider models.AIProvider) *Generator {
	return &Generator{provider: provider}
}

func (g *Generator) Generate(ctx context.Context, req Request) (*Output, error) {
	start := time.Now()

	brandJSON, err := json.MarshalIndent(req.BrandData, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encoding brand data: %w", ErrGeneration, err)
	}

	plan, err := g.outline(ctx, req.Template, brandJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: outline stage: %w", ErrGeneration, err)
	}

	content, err := g.content(ctx, req.Template, plan, brandJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: content stage: %w", ErrGeneration, err)
	}
	if content.Title == "" {
		content.Title = plan.Title
	}
	if content.Title == "" {
		content.Title = req.Template.Name
	}

	return &Output{
		Content:    content,
		Markdown:   RenderMarkdown(content),
		DurationMS: time.Since(start).Milliseconds(),
	}, nil
}

func (g *Generator) outline(ctx context.Context, tmpl *Template, brandJSON []byte) (*outline, error) {
	resp, err := g.provider.Complete(ctx, models.CompletionRequest{
		System: fmt.Sprintf(`You plan the document outline for a %s: %s
Respond with one JSON object and nothing else:
{"title": string, "sections": [{"heading": string, "points": [string]}]}`, tmpl.Name, tmpl.Description),
		Prompt:    fmt.Sprintf("Instructions:\n%s\nBrand data:\n%s", tmpl.Outline, brandJSON),
		MaxTokens: outlineMaxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}

	var plan outline
	if err := analyzer.DecodeJSON(resp.Text, &plan); err != nil {
		return nil, err
	}
	if len(plan.Sections) == 0 {
		return nil, errors.New("outline has no sections")
	}
	return &plan, nil
}

func (g *Generator) content(ctx context.Context, tmpl *Template, plan *outline, brandJSON []byte) (*models.DocContent, error) {
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return nil, err
	}

	resp, err := g.provider.Complete(ctx, models.CompletionRequest{
		System: fmt.Sprintf(`You write the document content for a %s, following the approved outline exactly.
Respond with one JSON object and nothing else:
{"title": string, "summary": string, "sections": [{"heading": string, "body": string, "bullets": [string]}]}`, tmpl.Name),
		Prompt:    fmt.Sprintf("Instructions:\n%s\nOutline:\n%s\nBrand data:\n%s", tmpl.Content, planJSON, brandJSON),
		MaxTokens: contentMaxTokens,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}

	var content models.DocContent
	if err := analyzer.DecodeJSON(resp.Text, &content); err != nil {
		return nil, err
	}
	content.Title = strings.TrimSpace(content.Title)
	if len(content.Sections) == 0 {
		return nil, errors.New("content has no sections")
	}
	return &content, nil
}

// RenderMarkdown turns structured content into a markdown document.
func RenderMarkdown(c *models.DocContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", strings.TrimSpace(c.Title))
	if s := strings.TrimSpace(c.Summary); s != "" {
		fmt.Fprintf(&b, "\n%s\n", s)
	}
	for _, sec := range c.Sections {
		fmt.Fprintf(&b, "\n## %s\n", strings.TrimSpace(sec.Heading))
		if body := strings.TrimSpace(sec.Body); body != "" {
			fmt.Fprintf(&b, "\n%s\n", body)
		}
		if len(sec.Bullets) > 0 {
			b.WriteString("\n")
			for _, item := range sec.Bullets {
				if item = strings.TrimSpace(item); item != "" {
					fmt.Fprintf(&b, "- %s\n", item)
				}
			}
		}
	}
	return b.String()
}
