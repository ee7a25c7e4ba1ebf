package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai/anthropic"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/config"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *anthropic.Provider {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return anthropic.NewProvider(config.AnthropicConfig{
		APIKey:  "sk-ant-test",
		Model:   "claude-sonnet-4-5-20250929",
		BaseURL: ts.URL + "/",
	})
}

func TestComplete_Success(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant-test", r.Header.Get("X-API-Key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("Anthropic-Version"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "You extract brand basics", body["system"])
		assert.EqualValues(t, 2048, body["max_tokens"])

		_, _ = w.Write([]byte(`{
			"model": "claude-sonnet-4-5-20250929",
			"content": [{"type": "text", "text": "{\"business_name\":"}, {"type": "text", "text": "\"Acme\"}"}],
			"usage": {"input_tokens": 100, "output_tokens": 20}
		}`))
	})

	out, err := p.Complete(context.Background(), models.CompletionRequest{System: "You extract brand basics", Prompt: "page"})
	require.NoError(t, err)
	assert.Equal(t, `{"business_name":"Acme"}`, out.Text)
	assert.Equal(t, 100, out.InputTokens)
	assert.Equal(t, "anthropic", p.Name())
}

func TestComplete_ErrorStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ai.ErrRateLimited},
		{http.StatusServiceUnavailable, ai.ErrProviderUnavailable},
		{http.StatusBadRequest, ai.ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "x", "message": "nope"}}`))
			})
			_, err := p.Complete(context.Background(), models.CompletionRequest{Prompt: "hi"})
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "nope")
		})
	}
}

func TestComplete_EmptyContent(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model": "m", "content": []}`))
	})
	_, err := p.Complete(context.Background(), models.CompletionRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ai.ErrInvalidResponse)
}

func TestComplete_ContextDeadline(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, models.CompletionRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, ai.ErrInferenceTimeout)
}
