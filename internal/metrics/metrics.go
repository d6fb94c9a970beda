// Package metrics exposes Prometheus instrumentation for the quoting engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counts quote negotiations by outcome ("ok", "local", "invalid", "failed").
	QuoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ilp_quote_requests_total",
			Help: "Total number of quote negotiations (by result).",
		},
		[]string{"result"},
	)

	// Counts individual connector quote failures, including timeouts.
	ConnectorFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ilp_connector_quote_failures_total",
			Help: "Number of per-connector quote failures.",
		},
		[]string{"connector"},
	)

	// Counts correlated requests abandoned on timeout.
	CorrelatorTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ilp_correlator_timeouts_total",
			Help: "Number of correlated requests that timed out.",
		},
	)

	// Measures end-to-end quote negotiation duration.
	QuoteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ilp_quote_duration_seconds",
			Help:    "Duration of quote negotiations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
	)
)

// IncQuote records a quote negotiation outcome.
func IncQuote(result string) {
	QuoteRequestsTotal.WithLabelValues(result).Inc()
}

// IncConnectorFailure records one connector's quote failure.
func IncConnectorFailure(connector string) {
	ConnectorFailuresTotal.WithLabelValues(connector).Inc()
}

// StartServer serves /metrics on addr in the background.
func StartServer(addr string) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		http.ListenAndServe(addr, nil) //nolint:errcheck
	}()
}
