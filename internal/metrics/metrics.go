package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequestsTotal tracks fetches per provider and outcome
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecaster_provider_requests_total",
			Help: "Total number of provider fetch attempts",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderLatency tracks fetch latency per provider
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forecaster_provider_latency_seconds",
			Help:    "Provider fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// ProbesTotal tracks recovery and sweep probes per provider and result
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecaster_probes_total",
			Help: "Total number of provider health probes",
		},
		[]string{"provider", "result"},
	)

	// FailoversTotal tracks successful failovers per winning provider
	FailoversTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecaster_failovers_total",
			Help: "Total number of requests served by a fallback provider",
		},
		[]string{"provider"},
	)

	// AssignmentInvalidationsTotal tracks sweep-triggered routing resets
	AssignmentInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "forecaster_assignment_invalidations_total",
			Help: "Total number of routing assignments invalidated after provider recovery",
		},
	)
)
