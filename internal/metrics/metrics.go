// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CerfaFills = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cerfa_fills_total",
			Help: "Total number of CERFA fill attempts by outcome",
		},
		[]string{"outcome"},
	)

	CerfaFillDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cerfa_fill_duration_seconds",
			Help:    "Duration of filling, flattening and serializing one CERFA",
			Buckets: prometheus.DefBuckets,
		},
	)

	CerfaFieldWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cerfa_field_warnings_total",
			Help: "Total number of skipped CERFA fields by reason",
		},
		[]string{"reason"},
	)

	CerfaGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cerfa_generations_total",
			Help: "Total number of orchestrated CERFA generations by outcome",
		},
		[]string{"outcome"},
	)

	CerfaStoredBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cerfa_stored_bytes",
			Help:    "Size of stored CERFA documents in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	MCPToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcp_tool_calls_total",
			Help: "Total number of MCP tool calls by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
