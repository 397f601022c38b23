// Package metrics provides Prometheus instrumentation for the Bar-Mart
// moderation services. It exposes counters for moderation checks and flags,
// histograms for check latency, and gauges for open alert counts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChecksTotal counts moderation checks, labeled by path ("chat" or
	// "listing") and verdict ("clean" or "flagged").
	ChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "barmart_moderation_checks_total",
		Help: "Total number of moderation checks performed",
	}, []string{"path", "verdict"})

	// FlagsTotal counts flagged messages, labeled by detected category.
	FlagsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "barmart_moderation_flags_total",
		Help: "Total number of flagged messages by category",
	}, []string{"category"})

	// CheckLatency records moderation check latency in seconds.
	CheckLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "barmart_moderation_check_latency_seconds",
		Help:    "Moderation check processing latency in seconds",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	// NormalizerFailOpens counts description enhancement runs that
	// recovered from a panic and returned the original text.
	NormalizerFailOpens = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "barmart_normalizer_fail_opens_total",
		Help: "Total number of description normalizations that failed open",
	})

	// SuspensionsTotal counts user suspensions, labeled by trigger
	// ("auto" or "manual").
	SuspensionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "barmart_suspensions_total",
		Help: "Total number of user suspensions",
	}, []string{"trigger"})

	// OpenAlerts tracks the current number of uncleared flagged messages.
	OpenAlerts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "barmart_open_alerts",
		Help: "Current number of uncleared flagged messages",
	})
)

func init() {
	prometheus.MustRegister(
		ChecksTotal,
		FlagsTotal,
		CheckLatency,
		NormalizerFailOpens,
		SuspensionsTotal,
		OpenAlerts,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
