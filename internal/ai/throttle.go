package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/metrics"
	"github.com/hazelquimpo21/thecleverkit-sub001/pkg/models"
	"golang.org/x/time/rate"
)

// ThrottledProvider shares one token bucket across every caller of the
// wrapped provider and bounds each call with the inference timeout. Waiting
// for a token does not count against the timeout.
type ThrottledProvider struct {
	next    models.AIProvider
	limiter *rate.Limiter
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewThrottledProvider(next models.AIProvider, requestsPerSecond float64, burst int, timeout time.Duration) *ThrottledProvider {
	if burst < 1 {
		burst = 1
	}
	return &ThrottledProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		timeout: timeout,
		metrics: metrics.New(),
	}
}

func (p *ThrottledProvider) Name() string { return p.next.Name() }

func (p *ThrottledProvider) Complete(ctx context.Context, req models.CompletionRequest) (models.Completion, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return models.Completion{}, fmt.Errorf("%w: waiting for rate limiter: %v", ErrInferenceTimeout, err)
	}

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := p.next.Complete(callCtx, req)
	p.metrics.AIRequestDuration.WithLabelValues(p.next.Name()).Observe(time.Since(start).Seconds())

	if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrInferenceTimeout) {
		err = fmt.Errorf("%w: %v", ErrInferenceTimeout, err)
	}
	p.metrics.AIRequestsTotal.WithLabelValues(p.next.Name(), outcome(err)).Inc()
	return out, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInferenceTimeout):
		return "timeout"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	default:
		return "error"
	}
}

var _ models.AIProvider = (*ThrottledProvider)(nil)
