package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

const maxOfferings = 25

// ProductsResult is the parsed_data of a products run.
type ProductsResult struct {
	Offerings       []Offering `json:"offerings,omitempty"`
	PrimaryOffering string     `json:"primary_offering,omitempty"`
	PricingModel    string     `json:"pricing_model,omitempty"`
	Categories      []string   `json:"categories,omitempty"`
}

type Offering struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	Category    string `json:"category,omitempty"`
}

// Products lists what the business sells.
type Products struct{}

func (Products) Type() models.AnalyzerType { return models.AnalyzerProducts }

func (Products) Prompt(content *models.ScrapedContent) models.CompletionRequest {
	return models.CompletionRequest{
		System: `You list the products and services a business offers, based on its homepage.
Return these keys: offerings (list of objects with name, description, price, category),
primary_offering, pricing_model, categories (list of strings).
` + jsonRules,
		Prompt:    pagePrompt(content),
		MaxTokens: 1536,
		JSON:      true,
	}
}

func (Products) Parse(raw string) (json.RawMessage, error) {
	var in struct {
		Offerings []struct {
			Name        flexString `json:"name"`
			Description flexString `json:"description"`
			Price       flexString `json:"price"`
			Category    flexString `json:"category"`
		} `json:"offerings"`
		PrimaryOffering flexString  `json:"primary_offering"`
		PricingModel    flexString  `json:"pricing_model"`
		Categories      flexStrings `json:"categories"`
	}
	if err := DecodeJSON(raw, &in); err != nil {
		return nil, err
	}

	out := ProductsResult{
		PrimaryOffering: clean(in.PrimaryOffering),
		PricingModel:    clean(in.PricingModel),
		Categories:      cleanList(in.Categories),
	}
	seen := map[string]bool{}
	for _, o := range in.Offerings {
		name := clean(o.Name)
		key := strings.ToLower(name)
		if name == "" || seen[key] || len(out.Offerings) == maxOfferings {
			continue
		}
		seen[key] = true
		out.Offerings = append(out.Offerings, Offering{
			Name:        name,
			Description: clean(o.Description),
			Price:       clean(o.Price),
			Category:    clean(o.Category),
		})
	}

	if len(out.Offerings) == 0 && len(out.Categories) == 0 && allEmpty(out.PrimaryOffering, out.PricingModel) {
		return nil, fmt.Errorf("%w: no products fields present", ErrParse)
	}
	return json.Marshal(out)
}
