// Package openai talks to any OpenAI-compatible chat completions API:
// OpenAI itself, Ollama and vLLM.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	goopenai "github.com/sashabaranov/go-openai"
)

const defaultMaxTokens = 2048

// Options configures one OpenAI-compatible endpoint.
type Options struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string
	// JSONMode asks the server to constrain output to a JSON object when the
	// caller requests JSON. Some self-hosted servers reject the option.
	JSONMode bool
}

// Provider implements models.AIProvider on go-openai.
type Provider struct {
	client *goopenai.Client
	name   string
	model  string
	json   bool
}

func NewProvider(opts Options) *Provider {
	cfg := goopenai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	name := opts.Name
	if name == "" {
		name = "openai"
	}
	return &Provider{
		client: goopenai.NewClientWithConfig(cfg),
		name:   name,
		model:  opts.Model,
		json:   opts.JSONMode,
	}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) Complete(ctx context.Context, req models.CompletionRequest) (models.Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: 0.2,
	}
	if req.JSON && p.json {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// Reasoning models take MaxCompletionTokens instead of MaxTokens.
	if isReasoningModel(p.model) {
		chatReq.MaxCompletionTokens = maxTokens
		chatReq.Temperature = 0
	} else {
		chatReq.MaxTokens = maxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return models.Completion{}, classifyError(err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return models.Completion{}, fmt.Errorf("%w: empty completion", ai.ErrInvalidResponse)
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}
	return models.Completion{
		Text:         resp.Choices[0].Message.Content,
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func isReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ai.ErrInferenceTimeout, err)
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return statusError(apiErr.HTTPStatusCode, err)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return statusError(reqErr.HTTPStatusCode, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ai.ErrInferenceTimeout, err)
	}
	return fmt.Errorf("%w: %v", ai.ErrProviderUnavailable, err)
}

func statusError(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ai.ErrRateLimited, err)
	case status >= 500 || status == 0:
		return fmt.Errorf("%w: %v", ai.ErrProviderUnavailable, err)
	default:
		return fmt.Errorf("%w: %v", ai.ErrInvalidResponse, err)
	}
}

var _ models.AIProvider = (*Provider)(nil)
