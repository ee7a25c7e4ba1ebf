package analyzer

import (
	"encoding/json"
	"fmt"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// CustomerResult is the parsed_data of a customer run.
type CustomerResult struct {
	IdealCustomer     string   `json:"ideal_customer,omitempty"`
	Demographics      string   `json:"demographics,omitempty"`
	PainPoints        []string `json:"pain_points,omitempty"`
	Goals             []string `json:"goals,omitempty"`
	BuyingMotivations []string `json:"buying_motivations,omitempty"`
	Objections        []string `json:"objections,omitempty"`
}

// Customer infers who the business sells to.
type Customer struct{}

func (Customer) Type() models.AnalyzerType { return models.AnalyzerCustomer }

func (Customer) Prompt(content *models.ScrapedContent) models.CompletionRequest {
	return models.CompletionRequest{
		System: `You describe the ideal customer of a business from its homepage.
Return these keys: ideal_customer (one sentence), demographics, pain_points, goals,
buying_motivations, objections (each a list of short strings).
` + jsonRules,
		Prompt:    pagePrompt(content),
		MaxTokens: 1024,
		JSON:      true,
	}
}

func (Customer) Parse(raw string) (json.RawMessage, error) {
	var in struct {
		IdealCustomer     flexString  `json:"ideal_customer"`
		Demographics      flexString  `json:"demographics"`
		PainPoints        flexStrings `json:"pain_points"`
		Goals             flexStrings `json:"goals"`
		BuyingMotivations flexStrings `json:"buying_motivations"`
		Objections        flexStrings `json:"objections"`
	}
	if err := DecodeJSON(raw, &in); err != nil {
		return nil, err
	}

	out := CustomerResult{
		IdealCustomer:     clean(in.IdealCustomer),
		Demographics:      clean(in.Demographics),
		PainPoints:        cleanList(in.PainPoints),
		Goals:             cleanList(in.Goals),
		BuyingMotivations: cleanList(in.BuyingMotivations),
		Objections:        cleanList(in.Objections),
	}
	if allEmpty(out.IdealCustomer, out.Demographics) &&
		len(out.PainPoints)+len(out.Goals)+len(out.BuyingMotivations)+len(out.Objections) == 0 {
		return nil, fmt.Errorf("%w: no customer fields present", ErrParse)
	}
	return json.Marshal(out)
}
