package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatch metrics
	dispatchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_dispatch_attempts_total",
			Help: "Total number of dispatch attempts by final status",
		},
		[]string{"provider", "status"},
	)

	dispatchRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_dispatch_retries_total",
			Help: "Total number of dispatch attempt retries",
		},
		[]string{"provider"},
	)

	attemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quorum_attempt_duration_seconds",
			Help:    "Dispatch attempt duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Decision metrics
	decisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_decision_total",
			Help: "Total number of decision-maker outcomes",
		},
		[]string{"strategy", "outcome"},
	)

	// Top-level call metrics
	parseTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quorum_parse_total",
			Help: "Total number of top-level parse calls by terminal state",
		},
		[]string{"state"},
	)

	parseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quorum_parse_duration_seconds",
			Help:    "Top-level parse call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"state"},
	)

	initOnce sync.Once
)

// InitMetrics registers the Prometheus metrics
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			dispatchAttemptsTotal,
			dispatchRetriesTotal,
			attemptDuration,
			decisionTotal,
			parseTotal,
			parseDuration,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordAttempt records one settled dispatch attempt
func RecordAttempt(provider, status string, duration time.Duration) {
	dispatchAttemptsTotal.WithLabelValues(provider, status).Inc()
	attemptDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordRetry records one dispatch retry
func RecordRetry(provider string) {
	dispatchRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordDecision records a decision-maker outcome
// (outcome: "selected", "synthesized", "fallback", "skipped")
func RecordDecision(strategy, outcome string) {
	decisionTotal.WithLabelValues(strategy, outcome).Inc()
}

// RecordParse records a top-level parse call and its terminal state
func RecordParse(state string, duration time.Duration) {
	parseTotal.WithLabelValues(state).Inc()
	parseDuration.WithLabelValues(state).Observe(duration.Seconds())
}
