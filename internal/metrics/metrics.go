// Package metrics holds the Prometheus collectors shared by the server and
// the worker.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds the collectors. All names are prefixed with "cleverkit_".
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ScrapesTotal *prometheus.CounterVec

	AIRequestsTotal   *prometheus.CounterVec
	AIRequestDuration *prometheus.HistogramVec

	AnalyzerRunsTotal   *prometheus.CounterVec
	AnalyzerRunDuration *prometheus.HistogramVec

	DispatchQueueDepth prometheus.Gauge

	DocGenerationsTotal   *prometheus.CounterVec
	DocGenerationDuration *prometheus.HistogramVec

	ExportsTotal *prometheus.CounterVec
}

// New returns the process-wide collectors, registering them on first use.
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cleverkit_http_requests_total",
					Help: "Total HTTP requests by route pattern and status code",
				},
				[]string{"method", "route", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "cleverkit_http_request_duration_seconds",
					Help:    "HTTP request latency",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"method", "route"},
			),
			ScrapesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cleverkit_scrapes_total",
					Help: "Homepage scrapes by outcome",
				},
				[]string{"outcome"}, // "complete" or "failed"
			),
			AIRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cleverkit_ai_requests_total",
					Help: "AI completion requests by provider and outcome",
				},
				[]string{"provider", "outcome"},
			),
			AIRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "cleverkit_ai_request_duration_seconds",
					Help:    "AI completion latency",
					Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
				},
				[]string{"provider"},
			),
			AnalyzerRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cleverkit_analyzer_runs_total",
					Help: "Finished analyzer runs by analyzer type and terminal status",
				},
				[]string{"analyzer", "status"},
			),
			AnalyzerRunDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "cleverkit_analyzer_run_duration_seconds",
					Help:    "Wall time from analyzing to a terminal status",
					Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
				},
				[]string{"analyzer"},
			),
			DispatchQueueDepth: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "cleverkit_dispatch_queue_depth",
					Help: "Pending analysis dispatches in the durable queue",
				},
			),
			DocGenerationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cleverkit_doc_generations_total",
					Help: "Document generations by template and terminal status",
				},
				[]string{"template", "status"},
			),
			DocGenerationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "cleverkit_doc_generation_duration_seconds",
					Help:    "Two-stage document generation latency",
					Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
				},
				[]string{"template"},
			),
			ExportsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cleverkit_exports_total",
					Help: "Google Docs exports by outcome",
				},
				[]string{"outcome"},
			),
		}
	})
	return globalMetrics
}
