package scrape

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// NormalizeURL trims the input, adds https:// when no scheme is given and
// rejects anything that is not an absolute http(s) URL with a public host.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is required", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q is not supported", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" || !strings.Contains(u.Hostname(), ".") {
		return "", fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	if ip, err := netip.ParseAddr(u.Hostname()); err == nil && !isPublic(ip) {
		return "", fmt.Errorf("%w: %s is not a public address", ErrInvalidURL, ip)
	}
	if u.User != nil {
		return "", fmt.Errorf("%w: credentials in url are not allowed", ErrInvalidURL)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

var titleSeparators = []string{" | ", " - ", " – ", " — ", " : ", " · "}

// BrandName picks a display name for a scraped site: og:site_name, then the
// leading segment of the page title, then the bare host.
func BrandName(content *models.ScrapedContent, sourceURL string) string {
	if content != nil {
		if content.SiteName != "" {
			return content.SiteName
		}
		if title := strings.TrimSpace(content.Title); title != "" {
			for _, sep := range titleSeparators {
				if i := strings.Index(title, sep); i > 0 {
					title = strings.TrimSpace(title[:i])
					break
				}
			}
			return title
		}
	}
	u, err := url.Parse(sourceURL)
	if err != nil || u.Hostname() == "" {
		return sourceURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
