package ai_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai"
	"github.com/hazelquimpo21/thecleverkit-sub001/internal/ai/mock"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledProvider_PassesThrough(t *testing.T) {
	inner := mock.NewMockProvider()
	p := ai.NewThrottledProvider(inner, 100, 1, time.Second)

	out, err := p.Complete(context.Background(), models.CompletionRequest{System: "You extract brand basics"})
	require.NoError(t, err)
	assert.JSONEq(t, mock.BasicsJSON, out.Text)
	assert.Equal(t, "mock", p.Name())
	assert.Len(t, inner.Calls(), 1)
}

func TestThrottledProvider_TimeoutBecomesInferenceTimeout(t *testing.T) {
	inner := &mock.MockProvider{
		Name_: "slow",
		CompleteFunc: func(ctx context.Context, _ models.CompletionRequest) (models.Completion, error) {
			<-ctx.Done()
			return models.Completion{}, ctx.Err()
		},
	}
	p := ai.NewThrottledProvider(inner, 100, 1, 20*time.Millisecond)

	_, err := p.Complete(context.Background(), models.CompletionRequest{})
	assert.ErrorIs(t, err, ai.ErrInferenceTimeout)
}

func TestThrottledProvider_SpacesCalls(t *testing.T) {
	p := ai.NewThrottledProvider(mock.NewMockProvider(), 20, 1, time.Second)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := p.Complete(context.Background(), models.CompletionRequest{})
		require.NoError(t, err)
	}
	// burst of 1 at 20/s: the second and third call each wait ~50ms
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestThrottledProvider_CancelledWhileWaiting(t *testing.T) {
	p := ai.NewThrottledProvider(mock.NewMockProvider(), 0.1, 1, time.Second)
	_, err := p.Complete(context.Background(), models.CompletionRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Complete(ctx, models.CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrInferenceTimeout))
}

func TestTransient(t *testing.T) {
	assert.True(t, ai.Transient(fmt.Errorf("call: %w", ai.ErrRateLimited)))
	assert.True(t, ai.Transient(ai.ErrInferenceTimeout))
	assert.True(t, ai.Transient(ai.ErrProviderUnavailable))
	assert.False(t, ai.Transient(ai.ErrInvalidResponse))
	assert.False(t, ai.Transient(errors.New("other")))
}
