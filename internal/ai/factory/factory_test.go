package factory_test

import (
	"testing"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai/factory"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func aiConfig(provider string) config.AIConfig {
	return config.AIConfig{
		Provider:          provider,
		InferenceTimeout:  30 * time.Second,
		RequestsPerSecond: 2,
		Burst:             3,
		Ollama:            config.OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3"},
		VLLM:              config.VLLMConfig{BaseURL: "http://localhost:8000/v1", Model: "mistral-7b"},
		OpenAI:            config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini"},
		Anthropic:         config.AnthropicConfig{APIKey: "sk-ant-test", Model: "claude-sonnet-4-5-20250929", BaseURL: "https://api.anthropic.com"},
	}
}

func TestNewProvider_Known(t *testing.T) {
	for _, name := range []string{"ollama", "vllm", "openai", "anthropic", "mock"} {
		t.Run(name, func(t *testing.T) {
			p, err := factory.NewProvider(aiConfig(name))
			require.NoError(t, err)
			assert.Equal(t, name, p.Name())
		})
	}
}

func TestNewProvider_Unknown(t *testing.T) {
	_, err := factory.NewProvider(aiConfig("unknown-provider"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown AI provider")
	assert.Contains(t, err.Error(), "unknown-provider")
}

func TestNewProvider_Empty(t *testing.T) {
	_, err := factory.NewProvider(config.AIConfig{Provider: ""})
	require.Error(t, err)
}
