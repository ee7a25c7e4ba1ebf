// Package factory builds the configured AI provider.
package factory

import (
	"fmt"
	"strings"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai/anthropic"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai/mock"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai/openai"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/config"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// NewProvider constructs the provider named by cfg.Provider, wrapped in the
// shared rate limiter and inference timeout. Called once at startup.
func NewProvider(cfg config.AIConfig) (models.AIProvider, error) {
	var p models.AIProvider
	switch cfg.Provider {
	case "ollama":
		p = openai.NewProvider(openai.Options{
			Name:     "ollama",
			APIKey:   "ollama",
			Model:    cfg.Ollama.Model,
			BaseURL:  v1URL(cfg.Ollama.BaseURL),
			JSONMode: true,
		})
	case "vllm":
		p = openai.NewProvider(openai.Options{
			Name:    "vllm",
			APIKey:  "EMPTY",
			Model:   cfg.VLLM.Model,
			BaseURL: v1URL(cfg.VLLM.BaseURL),
		})
	case "openai":
		p = openai.NewProvider(openai.Options{
			Name:     "openai",
			APIKey:   cfg.OpenAI.APIKey,
			Model:    cfg.OpenAI.Model,
			BaseURL:  cfg.OpenAI.BaseURL,
			JSONMode: true,
		})
	case "anthropic":
		p = anthropic.NewProvider(cfg.Anthropic)
	case "mock":
		p = mock.NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of ollama, vllm, openai, anthropic, mock", cfg.Provider)
	}
	return ai.NewThrottledProvider(p, cfg.RequestsPerSecond, cfg.Burst, cfg.InferenceTimeout), nil
}

// v1URL points an OpenAI-compatible client at the server's /v1 prefix.
func v1URL(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/v1") {
		return base
	}
	return base + "/v1"
}
