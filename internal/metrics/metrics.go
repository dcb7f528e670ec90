// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InsightRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ink",
			Subsystem: "insight",
			Name:      "requests_total",
			Help:      "Insight requests by mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	InsightCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ink",
			Subsystem: "insight",
			Name:      "cache_total",
			Help:      "Weekly insight cache decisions by reason.",
		},
		[]string{"reason"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ink",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Provider calls by call shape and result kind.",
		},
		[]string{"call", "kind"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ink",
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Provider round-trip latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"call"},
	)
)
