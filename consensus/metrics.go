package consensus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
)

var metricsInitialised = false

// initPrometheusMetrics registers the adapter's request counters and
// latency histograms, one label series per ABCI-style method. Lazy so
// tests constructing several servers don't double-register.
func initPrometheusMetrics() {
	if metricsInitialised {
		return
	}

	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "grug",
			Subsystem: "consensus",
			Name:      "requests_total",
			Help:      "Number of consensus adapter requests by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	requestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "grug",
			Subsystem: "consensus",
			Name:      "request_seconds",
			Help:      "Consensus adapter request latency by method.",
		},
		[]string{"method"},
	)

	metricsInitialised = true
}
