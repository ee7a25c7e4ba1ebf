package google

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"google.golang.org/api/docs/v1"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const defaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// API is the part of Google the export flow talks to.
type API interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	TokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource
	UserEmail(ctx context.Context, ts oauth2.TokenSource) (string, error)
	CreateDoc(ctx context.Context, ts oauth2.TokenSource, title, body string) (id, link string, err error)
	Revoke(ctx context.Context, token string) error
}

// Client implements API with x/oauth2 and the generated Google API clients.
type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	revokeURL  string
	// apiEndpoint overrides the Docs and userinfo base URL. Empty uses Google.
	apiEndpoint string
}

func NewClient(cfg config.GoogleConfig) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{docs.DriveFileScope, oauth2api.UserinfoEmailScope},
		},
		httpClient: &http.Client{Timeout: 15 * time.Second},
		revokeURL:  defaultRevokeURL,
	}
}

// AuthCodeURL asks for offline access and forces the consent screen so a
// refresh token is returned even on reconnect.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.oauth.Exchange(c.withHTTPClient(ctx), code)
}

func (c *Client) TokenSource(ctx context.Context, refreshToken string) oauth2.TokenSource {
	return c.oauth.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
}

func (c *Client) UserEmail(ctx context.Context, ts oauth2.TokenSource) (string, error) {
	svc, err := oauth2api.NewService(ctx, c.options(ts)...)
	if err != nil {
		return "", fmt.Errorf("creating userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("fetching userinfo: %w", err)
	}
	return info.Email, nil
}

// CreateDoc creates an empty document and inserts body at its start.
func (c *Client) CreateDoc(ctx context.Context, ts oauth2.TokenSource, title, body string) (string, string, error) {
	svc, err := docs.NewService(ctx, c.options(ts)...)
	if err != nil {
		return "", "", fmt.Errorf("creating docs client: %w", err)
	}

	doc, err := svc.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("creating document: %w", err)
	}

	if body != "" {
		_, err = svc.Documents.BatchUpdate(doc.DocumentId, &docs.BatchUpdateDocumentRequest{
			Requests: []*docs.Request{{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{Index: 1},
					Text:     body,
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return "", "", fmt.Errorf("writing document %s: %w", doc.DocumentId, err)
		}
	}

	return doc.DocumentId, "https://docs.google.com/document/d/" + doc.DocumentId + "/edit", nil
}

// Revoke invalidates token at Google. Revoking an unknown token is an error
// from Google's side; callers treat revocation as best-effort.
func (c *Client) Revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoking token: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) options(ts oauth2.TokenSource) []option.ClientOption {
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if c.apiEndpoint != "" {
		opts = append(opts, option.WithEndpoint(c.apiEndpoint))
	}
	return opts
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

var _ API = (*Client)(nil)
