// Package anthropic implements models.AIProvider on the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/config"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

const (
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 2048
)

// Provider implements models.AIProvider using Anthropic.
type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func NewProvider(cfg config.AnthropicConfig) *Provider {
	return &Provider{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (p *Provider) Name() string { return "anthropic" }

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (models.Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	body, err := json.Marshal(messagesRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Temperature: 0.2,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return models.Completion{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return models.Completion{}, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", p.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return models.Completion{}, classifyError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return models.Completion{}, classifyError(err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return models.Completion{}, fmt.Errorf("%w: %s", ai.ErrRateLimited, msg)
		case resp.StatusCode >= 500:
			return models.Completion{}, fmt.Errorf("%w: status %d: %s", ai.ErrProviderUnavailable, resp.StatusCode, msg)
		default:
			return models.Completion{}, fmt.Errorf("%w: status %d: %s", ai.ErrInvalidResponse, resp.StatusCode, msg)
		}
	}

	var out messagesResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return models.Completion{}, fmt.Errorf("%w: decoding response: %v", ai.ErrInvalidResponse, err)
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return models.Completion{}, fmt.Errorf("%w: empty completion", ai.ErrInvalidResponse)
	}

	return models.Completion{
		Text:         text.String(),
		Model:        out.Model,
		InputTokens:  out.Usage.InputTokens,
		OutputTokens: out.Usage.OutputTokens,
	}, nil
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ai.ErrInferenceTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ai.ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%w: %v", ai.ErrProviderUnavailable, err)
}

// --- Messages API types ---

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

var _ models.AIProvider = (*Provider)(nil)
