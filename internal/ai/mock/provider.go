package mock

import (
	"context"
	"sync"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
)

// MockProvider satisfies models.AIProvider for testing and for running the
// service without a model (AI_PROVIDER=mock).
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, req models.CompletionRequest) (models.Completion, error)

	mu    sync.Mutex
	calls []models.CompletionRequest
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, req models.CompletionRequest) (models.Completion, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return models.Completion{Text: "{}", Model: "mock-v1"}, nil
}

// Calls returns a copy of every request received so far.
func (m *MockProvider) Calls() []models.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// NewMockProvider returns a MockProvider that answers with canned JSON picked
// by the first matching marker in the prompt.
func NewMockProvider() *MockProvider {
	return NewScriptedProvider(DefaultResponses())
}

// NewScriptedProvider answers each request with the response whose key
// appears in the system or user prompt. Unmatched requests get "{}".
func NewScriptedProvider(responses []Response) *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, req models.CompletionRequest) (models.Completion, error) {
			for _, r := range responses {
				if containsMarker(req, r.Marker) {
					if r.Err != nil {
						return models.Completion{}, r.Err
					}
					return models.Completion{Text: r.Text, Model: "mock-v1"}, nil
				}
			}
			return models.Completion{Text: "{}", Model: "mock-v1"}, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ models.CompletionRequest) (models.Completion, error) {
			return models.Completion{}, err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ models.CompletionRequest) (models.Completion, error) {
			<-ctx.Done()
			return models.Completion{}, ai.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
