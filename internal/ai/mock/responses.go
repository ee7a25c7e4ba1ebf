package mock

import (
	"strings"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// Response is one scripted answer. Marker is matched against the system
// prompt, or the user prompt when there is no system prompt.
type Response struct {
	Marker string
	Text   string
	Err    error
}

// Markers identifying each kind of prompt the service sends.
const (
	MarkerBasics     = "brand basics"
	MarkerCustomer   = "ideal customer"
	MarkerProducts   = "products and services"
	MarkerDocOutline = "document outline"
	MarkerDocContent = "document content"
)

func containsMarker(req models.CompletionRequest, marker string) bool {
	text := req.System
	if text == "" {
		text = req.Prompt
	}
	return strings.Contains(text, marker)
}

// DefaultResponses returns a complete, readiness-satisfying set of answers.
func DefaultResponses() []Response {
	return []Response{
		{Marker: MarkerBasics, Text: BasicsJSON},
		{Marker: MarkerCustomer, Text: CustomerJSON},
		{Marker: MarkerProducts, Text: "```json\n" + ProductsJSON + "\n```"},
		{Marker: MarkerDocOutline, Text: OutlineJSON},
		{Marker: MarkerDocContent, Text: ContentJSON},
	}
}

const BasicsJSON = `{
  "business_name": "Acme Coffee",
  "tagline": "Small batch, big flavor",
  "industry": "Specialty coffee",
  "location": "Portland, OR",
  "value_proposition": "Freshly roasted beans delivered within 48 hours of roasting",
  "brand_voice": "Warm, knowledgeable, unpretentious",
  "mission": "Make great coffee an everyday habit",
  "key_differentiators": ["Roasted to order", "Direct trade farms"]
}`

const CustomerJSON = `{
  "ideal_customer": "Home brewers who care about freshness",
  "demographics": "25-45, urban, mid to high income",
  "pain_points": ["Stale supermarket beans", "Confusing origin labels"],
  "goals": ["Cafe quality coffee at home"],
  "buying_motivations": ["Freshness", "Convenience"],
  "objections": ["Price per bag"]
}`

const ProductsJSON = `{
  "offerings": [
    {"name": "House Blend", "description": "Chocolatey everyday blend", "price": "$16", "category": "Coffee"},
    {"name": "Subscription", "description": "Two bags every two weeks", "price": "$28/mo", "category": "Subscription"}
  ],
  "primary_offering": "Coffee subscription",
  "pricing_model": "Subscription with one-off purchases",
  "categories": ["Coffee", "Subscription"]
}`

const OutlineJSON = `{
  "title": "Acme Coffee Brand Brief",
  "sections": [
    {"heading": "Who we are", "points": ["Mission", "Voice"]},
    {"heading": "Who we serve", "points": ["Ideal customer"]}
  ]
}`

const ContentJSON = `{
  "title": "Acme Coffee Brand Brief",
  "summary": "A short brief on Acme Coffee.",
  "sections": [
    {"heading": "Who we are", "body": "Acme Coffee roasts to order.", "bullets": ["Warm voice", "Direct trade"]},
    {"heading": "Who we serve", "body": "Home brewers who care about freshness."}
  ]
}`
