package scrape

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Acme Coffee | Small batch roasters</title>
  <meta name="description" content="Fresh roasted beans delivered weekly.">
  <meta property="og:site_name" content="Acme Coffee">
  <style>body { color: red; }</style>
  <script>var tracking = "do not read";</script>
</head>
<body>
  <h1>Roasted  this   week</h1>
  <p>We source beans from <a href="/farms">partner farms</a>.</p>
  <h2>Subscriptions</h2>
  <a href="https://acme.example.com/shop">Shop</a>
  <a href="/farms">Farms again</a>
  <a href="mailto:hi@acme.example.com">Mail</a>
  <a href="#top">Top</a>
  <noscript>Enable JavaScript</noscript>
</body>
</html>`

func pageServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

// newTestScraper allows loopback so httptest servers are reachable.
func newTestScraper() *HTTPScraper {
	s := NewHTTPScraper(2*time.Second, "test-agent", 1<<20)
	s.allowPrivate = true
	return s
}

// --- Extract tests ---

func TestExtract_SamplePage(t *testing.T) {
	content, err := Extract(strings.NewReader(samplePage))
	require.NoError(t, err)

	assert.Equal(t, "Acme Coffee | Small batch roasters", content.Title)
	assert.Equal(t, "Fresh roasted beans delivered weekly.", content.Description)
	assert.Equal(t, "Acme Coffee", content.SiteName)
	assert.Equal(t, []string{"Roasted this week", "Subscriptions"}, content.Headings)
	assert.Equal(t, []string{"/farms", "https://acme.example.com/shop"}, content.Links)

	assert.Contains(t, content.BodyText, "We source beans from partner farms")
	assert.NotContains(t, content.BodyText, "tracking")
	assert.NotContains(t, content.BodyText, "color: red")
	assert.NotContains(t, content.BodyText, "Enable JavaScript")
	assert.NotContains(t, content.BodyText, "Small batch roasters")
}

func TestExtract_OGFallbacks(t *testing.T) {
	page := `<html><head>
		<meta property="og:title" content="Bolt Bikes">
		<meta property="og:description" content="Electric bikes for cities">
	</head><body><p>Ride more.</p></body></html>`

	content, err := Extract(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "Bolt Bikes", content.Title)
	assert.Equal(t, "Electric bikes for cities", content.Description)
}

func TestExtract_TruncatesBodyText(t *testing.T) {
	page := "<html><body><p>" + strings.Repeat("word ", maxBodyTextChars) + "</p></body></html>"

	content, err := Extract(strings.NewReader(page))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(content.BodyText), maxBodyTextChars)
}

// --- Scrape tests ---

func TestScrape_Success(t *testing.T) {
	ts := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(samplePage))
	})

	content, err := newTestScraper().Scrape(context.Background(), ts.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, content.StatusCode)
	assert.Equal(t, ts.URL+"/", content.FetchedURL)
	assert.Equal(t, "Acme Coffee", content.SiteName)
}

func TestScrape_FollowsRedirect(t *testing.T) {
	ts := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/home", http.StatusFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	})

	content, err := newTestScraper().Scrape(context.Background(), ts.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/home", content.FetchedURL)
}

func TestScrape_Non2xx(t *testing.T) {
	ts := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := newTestScraper().Scrape(context.Background(), ts.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed), "expected ErrFetchFailed, got: %v", err)
	assert.Contains(t, err.Error(), "404")
}

func TestScrape_UnsupportedContentType(t *testing.T) {
	ts := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})

	_, err := newTestScraper().Scrape(context.Background(), ts.URL)
	assert.ErrorIs(t, err, ErrUnsupportedContent)
}

func TestScrape_EmptyPage(t *testing.T) {
	ts := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head></head><body><script>x()</script></body></html>"))
	})

	_, err := newTestScraper().Scrape(context.Background(), ts.URL)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestScrape_Timeout(t *testing.T) {
	ts := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	})

	s := NewHTTPScraper(50*time.Millisecond, "test-agent", 1<<20)
	s.allowPrivate = true
	_, err := s.Scrape(context.Background(), ts.URL)
	assert.ErrorIs(t, err, ErrScrapeTimeout)
}

func TestScrape_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	_, err := newTestScraper().Scrape(context.Background(), addr)
	assert.ErrorIs(t, err, ErrFetchFailed)
}

func TestScrape_BlocksPrivateAddresses(t *testing.T) {
	var hits atomic.Int32
	ts := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	})

	s := NewHTTPScraper(2*time.Second, "test-agent", 1<<20)
	_, err := s.Scrape(context.Background(), ts.URL)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Zero(t, hits.Load())
}

func TestScrape_BlocksRedirectToPrivateAddress(t *testing.T) {
	var hits atomic.Int32
	internal := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})
	// The first hop is let through, the redirect target is checked again.
	var dials atomic.Int32
	s := NewHTTPScraper(2*time.Second, "test-agent", 1<<20)
	s.client.Transport.(*http.Transport).DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		if dials.Add(1) > 1 {
			if err := s.checkDial(network, addr, nil); err != nil {
				return nil, err
			}
		}
		var d net.Dialer
		return d.DialContext(ctx, network, addr)
	}
	redirector := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, internal.URL+"/", http.StatusFound)
	})

	_, err := s.Scrape(context.Background(), redirector.URL)
	assert.ErrorIs(t, err, ErrBlockedAddress)
	assert.Zero(t, hits.Load())
}

func TestIsPublic(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:2800:220:1:248:1893:25c8:1946", true},
		{"127.0.0.1", false},
		{"10.0.0.1", false},
		{"172.16.5.4", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"::1", false},
		{"fd00::1", false},
		{"fe80::1", false},
		{"::ffff:127.0.0.1", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, isPublic(netip.MustParseAddr(tt.addr)))
		})
	}
}

// --- URL tests ---

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"example.com", "https://example.com/"},
		{"  https://Example.com/about#team ", "https://example.com/about"},
		{"http://shop.example.com/path?q=1", "http://shop.example.com/path?q=1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURL_Rejects(t *testing.T) {
	for _, in := range []string{"", "   ", "ftp://example.com", "javascript:alert(1)", "https://", "https://user:pw@example.com", "notahost",
		"http://localhost:3000", "http://127.0.0.1/", "http://169.254.169.254/latest/meta-data", "http://[::1]:8080/"} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeURL(in)
			assert.ErrorIs(t, err, ErrInvalidURL)
		})
	}
}

func TestBrandName(t *testing.T) {
	assert.Equal(t, "Acme Coffee", BrandName(&models.ScrapedContent{SiteName: "Acme Coffee", Title: "Home"}, "https://acme.example.com/"))
	assert.Equal(t, "Bolt Bikes", BrandName(&models.ScrapedContent{Title: "Bolt Bikes - Electric bikes"}, "https://bolt.example.com/"))
	assert.Equal(t, "bolt.example.com", BrandName(nil, "https://www.bolt.example.com/"))
}
