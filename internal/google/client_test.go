package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testClient() *Client {
	return NewClient(config.GoogleConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/api/v1/oauth/google/callback",
	})
}

func TestClient_AuthCodeURL(t *testing.T) {
	raw := testClient().AuthCodeURL("state-token")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, "state-token", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Contains(t, q.Get("scope"), "drive.file")
	assert.Contains(t, q.Get("scope"), "userinfo.email")
}

func TestClient_ExchangeAndRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			assert.Equal(t, "auth-code", r.Form.Get("code"))
			_, _ = io.WriteString(w, `{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`)
		case "refresh_token":
			if r.Form.Get("refresh_token") != "rt-1" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
				return
			}
			_, _ = io.WriteString(w, `{"access_token":"at-2","token_type":"Bearer","expires_in":3600}`)
		}
	}))
	defer srv.Close()

	c := testClient()
	c.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	ctx := context.Background()

	tok, err := c.Exchange(ctx, "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "rt-1", tok.RefreshToken)

	fresh, err := c.TokenSource(ctx, "rt-1").Token()
	require.NoError(t, err)
	assert.Equal(t, "at-2", fresh.AccessToken)

	_, err = c.TokenSource(ctx, "revoked").Token()
	require.Error(t, err)
	assert.ErrorIs(t, classifyTokenError(err), ErrReconnectRequired)
}

func TestClient_CreateDocAndUserEmail(t *testing.T) {
	var inserted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/documents":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Brand Brief", body["title"])
			_, _ = io.WriteString(w, `{"documentId":"doc-123","title":"Brand Brief"}`)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/v1/documents/doc-123:batchUpdate"):
			b, _ := io.ReadAll(r.Body)
			inserted = string(b)
			_, _ = io.WriteString(w, `{"documentId":"doc-123"}`)
		case r.URL.Path == "/oauth2/v2/userinfo":
			_, _ = io.WriteString(w, `{"email":"owner@example.com"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := testClient()
	c.apiEndpoint = srv.URL + "/"
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "at-1"})

	id, link, err := c.CreateDoc(context.Background(), ts, "Brand Brief", "# Brief\n")
	require.NoError(t, err)
	assert.Equal(t, "doc-123", id)
	assert.Equal(t, "https://docs.google.com/document/d/doc-123/edit", link)
	assert.Contains(t, inserted, "# Brief")

	email, err := c.UserEmail(context.Background(), ts)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", email)
}

func TestClient_Revoke(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.Form.Get("token")
		if got == "unknown" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient()
	c.revokeURL = srv.URL
	require.NoError(t, c.Revoke(context.Background(), "rt-1"))
	assert.Equal(t, "rt-1", got)

	assert.Error(t, c.Revoke(context.Background(), "unknown"))
}
