package analyzer

import (
	"fmt"
	"strings"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

const maxPromptBodyChars = 12000

const jsonRules = `Respond with a single JSON object and nothing else.
Use only facts supported by the page. Use an empty string or empty list when the page does not say.`

// pagePrompt renders the scraped page as the user message shared by all analyzers.
func pagePrompt(content *models.ScrapedContent) string {
	var b strings.Builder
	if content == nil {
		return ""
	}
	fmt.Fprintf(&b, "URL: %s\n", content.FetchedURL)
	if content.SiteName != "" {
		fmt.Fprintf(&b, "Site name: %s\n", content.SiteName)
	}
	if content.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", content.Title)
	}
	if content.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", content.Description)
	}
	if len(content.Headings) > 0 {
		b.WriteString("Headings:\n")
		for _, h := range content.Headings {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	body := content.BodyText
	if len(body) > maxPromptBodyChars {
		body = body[:maxPromptBodyChars]
	}
	b.WriteString("\nPage text:\n")
	b.WriteString(body)
	return b.String()
}
