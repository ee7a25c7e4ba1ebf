// Package scrape fetches a single homepage and reduces it to the text an
// analyzer needs.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// Sentinel errors for scrape failures.
var (
	ErrInvalidURL         = errors.New("invalid url")
	ErrFetchFailed        = errors.New("fetch failed")
	ErrScrapeTimeout      = errors.New("scrape timeout")
	ErrUnsupportedContent = errors.New("unsupported content type")
	ErrEmptyContent       = errors.New("page has no readable content")
	ErrBlockedAddress     = errors.New("address is not publicly routable")
)

// Scraper fetches and extracts a page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*models.ScrapedContent, error)
}

// HTTPScraper implements Scraper with a plain GET of one page. It only
// connects to public addresses; the check runs on every dial, so redirects
// and DNS answers pointing inside the network are refused too.
type HTTPScraper struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64

	// allowPrivate disables the address check. Tests serve pages on loopback.
	allowPrivate bool
}

// NewHTTPScraper creates a scraper. The timeout bounds the whole request,
// redirects included.
func NewHTTPScraper(timeout time.Duration, userAgent string, maxBodyBytes int64) *HTTPScraper {
	s := &HTTPScraper{
		userAgent:    userAgent,
		maxBodyBytes: maxBodyBytes,
	}

	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   s.checkDial,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	s.client = &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			return nil
		},
	}
	return s
}

// checkDial runs after DNS resolution with the concrete ip:port being dialed.
func (s *HTTPScraper) checkDial(_, address string, _ syscall.RawConn) error {
	if s.allowPrivate {
		return nil
	}
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || !isPublic(ip) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
	}
	return nil
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func isPublic(ip netip.Addr) bool {
	ip = ip.Unmap()
	switch {
	case ip.IsLoopback(), ip.IsPrivate(), ip.IsUnspecified(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(), ip.IsMulticast():
		return false
	case sharedAddressSpace.Contains(ip):
		return false
	}
	return true
}

func (s *HTTPScraper) Scrape(ctx context.Context, url string) (*models.ScrapedContent, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	httpReq.Header.Set("User-Agent", s.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || (mediaType != "text/html" && mediaType != "application/xhtml+xml") {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedContent, ct)
		}
	}

	content, err := Extract(io.LimitReader(resp.Body, s.maxBodyBytes))
	if err != nil {
		return nil, classifyError(err)
	}
	content.FetchedURL = resp.Request.URL.String()
	content.StatusCode = resp.StatusCode

	if content.Title == "" && content.BodyText == "" {
		return nil, ErrEmptyContent
	}
	return content, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, ErrBlockedAddress) {
		return fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrScrapeTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrScrapeTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrFetchFailed, err)
}

// Compile-time check that HTTPScraper implements Scraper.
var _ Scraper = (*HTTPScraper)(nil)
