// Package metrics exposes Prometheus collectors for the monitor service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal             *prometheus.CounterVec
	runDurationSeconds    prometheus.Histogram
	sourceResultsTotal    *prometheus.CounterVec
	fetchOutcomesTotal    *prometheus.CounterVec
	changeEventsTotal     prometheus.Counter
	analysisDegradedTotal prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regwatch_runs_total",
				Help: "Total number of pipeline runs, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		runDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "regwatch_run_duration_seconds",
				Help:    "Histogram of full-run durations.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
		)

		sourceResultsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regwatch_source_results_total",
				Help: "Per-source pipeline results, labeled by status.",
			},
			[]string{"status"},
		)

		fetchOutcomesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "regwatch_fetch_outcomes_total",
				Help: "Fetch attempts, labeled by outcome kind.",
			},
			[]string{"kind"},
		)

		changeEventsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "regwatch_change_events_total",
				Help: "Total change events recorded.",
			},
		)

		analysisDegradedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "regwatch_analysis_degraded_total",
				Help: "Analysis invocations that degraded to the placeholder result.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records a completed run and its duration.
func ObserveRun(success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	runsTotal.WithLabelValues(outcome).Inc()
	runDurationSeconds.Observe(duration.Seconds())
}

// ObserveSourceResult increments the per-source result counter.
func ObserveSourceResult(status string) {
	sourceResultsTotal.WithLabelValues(status).Inc()
}

// ObserveFetch increments the fetch outcome counter.
func ObserveFetch(kind string) {
	fetchOutcomesTotal.WithLabelValues(kind).Inc()
}

// ObserveChangeEvent increments the recorded-event counter.
func ObserveChangeEvent() {
	changeEventsTotal.Inc()
}

// ObserveAnalysisDegraded increments the degraded-analysis counter.
func ObserveAnalysisDegraded() {
	analysisDegradedTotal.Inc()
}
