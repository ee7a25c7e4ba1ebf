package scrape

import (
	"io"
	"net/url"
	"strings"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/textutil"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"golang.org/x/net/html"
)

const (
	maxBodyTextChars = 20000
	maxHeadings      = 40
	maxLinks         = 100
)

// Extract walks an HTML document with a streaming tokenizer and collects
// title, meta description, site name, headings, visible text and links.
// Text inside script, style, noscript and template elements is skipped.
func Extract(r io.Reader) (*models.ScrapedContent, error) {
	tokenizer := html.NewTokenizer(r)
	content := &models.ScrapedContent{Headings: []string{}, Links: []string{}}

	var body strings.Builder
	var heading strings.Builder
	seenLinks := map[string]bool{}
	skipDepth := 0
	inTitle := false
	inHeading := false

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			if err := tokenizer.Err(); err != io.EOF {
				return nil, err
			}
			break
		}

		switch tt {
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := collapseSpace(string(tokenizer.Text()))
			if text == "" {
				continue
			}
			switch {
			case inTitle:
				content.Title = joinText(content.Title, text)
			case inHeading:
				heading.WriteString(text)
				heading.WriteString(" ")
			}
			if !inTitle && body.Len() < maxBodyTextChars {
				body.WriteString(text)
				body.WriteString(" ")
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "script", "style", "noscript", "template", "svg":
				if tt == html.StartTagToken {
					skipDepth++
				}
			case "title":
				inTitle = tt == html.StartTagToken
			case "h1", "h2", "h3":
				inHeading = tt == html.StartTagToken
				heading.Reset()
			case "meta":
				readMeta(token, content)
			case "a":
				href := strings.TrimSpace(attr(token, "href"))
				if isFollowableLink(href) && !seenLinks[href] && len(content.Links) < maxLinks {
					seenLinks[href] = true
					content.Links = append(content.Links, href)
				}
			}

		case html.EndTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "script", "style", "noscript", "template", "svg":
				if skipDepth > 0 {
					skipDepth--
				}
			case "title":
				inTitle = false
			case "h1", "h2", "h3":
				if inHeading {
					if h := strings.TrimSpace(heading.String()); h != "" && len(content.Headings) < maxHeadings {
						content.Headings = append(content.Headings, h)
					}
				}
				inHeading = false
			}
		}
	}

	content.BodyText = textutil.Truncate(strings.TrimSpace(body.String()), maxBodyTextChars)
	return content, nil
}

func readMeta(token html.Token, content *models.ScrapedContent) {
	name := strings.ToLower(attr(token, "name"))
	property := strings.ToLower(attr(token, "property"))
	value := collapseSpace(attr(token, "content"))
	if value == "" {
		return
	}
	switch {
	case name == "description":
		content.Description = value
	case property == "og:description" && content.Description == "":
		content.Description = value
	case property == "og:site_name":
		content.SiteName = value
	case property == "og:title" && content.Title == "":
		content.Title = value
	}
}

func attr(token html.Token, key string) string {
	for _, a := range token.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isFollowableLink(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "", "http", "https":
		return true
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func joinText(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}
