// Package metrics holds the prometheus collectors for the service. The
// collectors register with the default registry which is exposed on the
// debug mux under /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "register"

// Requests counts web requests by method, route, and status code.
var Requests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "web",
		Name:      "requests_total",
		Help:      "Total number of web requests.",
	},
	[]string{"method", "route", "status"},
)

// RequestDuration tracks web request latency by method and route.
var RequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "web",
		Name:      "request_duration_seconds",
		Help:      "Web request duration in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
	},
	[]string{"method", "route"},
)

// Errors counts errors that reached the error middleware.
var Errors = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "web",
		Name:      "errors_total",
		Help:      "Total number of handler errors.",
	},
)

// Panics counts recovered handler panics.
var Panics = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "web",
		Name:      "panics_total",
		Help:      "Total number of recovered panics.",
	},
)

// LedgerCalls counts contract calls by operation and outcome.
var LedgerCalls = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "calls_total",
		Help:      "Total number of contract calls.",
	},
	[]string{"op", "status"},
)

// LedgerDuration tracks contract call latency, including the wait for
// transaction confirmation on writes.
var LedgerDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "call_duration_seconds",
		Help:      "Contract call duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 15, 30, 60, 120},
	},
	[]string{"op"},
)
