package analyzer

import (
	"encoding/json"
	"fmt"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// BasicsResult is the parsed_data of a basics run.
type BasicsResult struct {
	BusinessName       string   `json:"business_name,omitempty"`
	Tagline            string   `json:"tagline,omitempty"`
	Industry           string   `json:"industry,omitempty"`
	Location           string   `json:"location,omitempty"`
	ValueProposition   string   `json:"value_proposition,omitempty"`
	BrandVoice         string   `json:"brand_voice,omitempty"`
	Mission            string   `json:"mission,omitempty"`
	KeyDifferentiators []string `json:"key_differentiators,omitempty"`
}

// Basics extracts identity and positioning.
type Basics struct{}

func (Basics) Type() models.AnalyzerType { return models.AnalyzerBasics }

func (Basics) Prompt(content *models.ScrapedContent) models.CompletionRequest {
	return models.CompletionRequest{
		System: `You extract brand basics from a company homepage.
Return these keys: business_name, tagline, industry, location, value_proposition,
brand_voice (a few adjectives describing tone), mission, key_differentiators (list of strings).
` + jsonRules,
		Prompt:    pagePrompt(content),
		MaxTokens: 1024,
		JSON:      true,
	}
}

func (Basics) Parse(raw string) (json.RawMessage, error) {
	var in struct {
		BusinessName       flexString  `json:"business_name"`
		Tagline            flexString  `json:"tagline"`
		Industry           flexString  `json:"industry"`
		Location           flexString  `json:"location"`
		ValueProposition   flexString  `json:"value_proposition"`
		BrandVoice         flexString  `json:"brand_voice"`
		Mission            flexString  `json:"mission"`
		KeyDifferentiators flexStrings `json:"key_differentiators"`
	}
	if err := DecodeJSON(raw, &in); err != nil {
		return nil, err
	}

	out := BasicsResult{
		BusinessName:       clean(in.BusinessName),
		Tagline:            clean(in.Tagline),
		Industry:           clean(in.Industry),
		Location:           clean(in.Location),
		ValueProposition:   clean(in.ValueProposition),
		BrandVoice:         clean(in.BrandVoice),
		Mission:            clean(in.Mission),
		KeyDifferentiators: cleanList(in.KeyDifferentiators),
	}
	if allEmpty(out.BusinessName, out.Tagline, out.Industry, out.Location, out.ValueProposition,
		out.BrandVoice, out.Mission) && len(out.KeyDifferentiators) == 0 {
		return nil, fmt.Errorf("%w: no basics fields present", ErrParse)
	}
	return json.Marshal(out)
}
