package metrics_test

import (
	"testing"

	"github.com/hazelquimpo21/thecleverkit-sub001/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ReturnsSingleton(t *testing.T) {
	m1 := metrics.New()
	m2 := metrics.New()
	require.NotNil(t, m1)
	assert.Same(t, m1, m2)
}

func TestAnalyzerRunsTotal_Increments(t *testing.T) {
	m := metrics.New()
	c := m.AnalyzerRunsTotal.WithLabelValues("basics", "complete")
	before := testutil.ToFloat64(c)

	c.Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
