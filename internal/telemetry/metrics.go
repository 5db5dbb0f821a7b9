package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SurveyResponsesTotal tracks recorded survey answers.
	// source: "authenticated" or "anonymous"; result: "matched" or "fallback".
	SurveyResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "survey_responses_total",
			Help: "Total number of recorded survey answers",
		},
		[]string{"source", "result"},
	)

	// CleanupActionsTotal tracks rows affected per cleanup sweep category
	CleanupActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cleanup_actions_total",
			Help: "Total number of rows affected by cleanup sweep actions",
		},
		[]string{"category"},
	)

	// HTTPRequestDuration tracks HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// RegisterMetrics registers all Prometheus metrics.
// Metrics are auto-registered via promauto; the function is kept for
// explicit startup ordering and future manual registration.
func RegisterMetrics() {}
