// Package metrics exposes Prometheus collectors for the ad-copy pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scrapeResultsTotal     *prometheus.CounterVec
	scrapeBatchSeconds     prometheus.Histogram
	fetchesInFlight        prometheus.Gauge
	generationResultsTotal *prometheus.CounterVec
	creditsDebitedTotal    *prometheus.CounterVec
	jobsTotal              *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeResultsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsawriter_scrape_results_total",
				Help: "Total number of per-URL scrape attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapeBatchSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rsawriter_scrape_batch_duration_seconds",
				Help:    "Histogram of whole-batch scrape durations.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		)

		fetchesInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rsawriter_fetches_in_flight",
				Help: "Number of provider fetches currently in flight.",
			},
		)

		generationResultsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsawriter_generation_results_total",
				Help: "Total number of per-URL copy generation attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		creditsDebitedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsawriter_credits_debited_half_units_total",
				Help: "Total credits debited in half-credit units, labeled by phase.",
			},
			[]string{"phase"},
		)

		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rsawriter_jobs_total",
				Help: "Total number of jobs reaching a final phase status, labeled by status.",
			},
			[]string{"status"},
		)
	})
}

// ObserveScrapeResult counts one per-URL scrape attempt.
func ObserveScrapeResult(ok bool) {
	if scrapeResultsTotal == nil {
		return
	}
	scrapeResultsTotal.WithLabelValues(outcome(ok)).Inc()
}

// ObserveBatchDuration records the wall time of one scrape batch.
func ObserveBatchDuration(seconds float64) {
	if scrapeBatchSeconds == nil {
		return
	}
	scrapeBatchSeconds.Observe(seconds)
}

// FetchStarted and FetchFinished track the in-flight fetch gauge.
func FetchStarted() {
	if fetchesInFlight != nil {
		fetchesInFlight.Inc()
	}
}

// FetchFinished decrements the in-flight fetch gauge.
func FetchFinished() {
	if fetchesInFlight != nil {
		fetchesInFlight.Dec()
	}
}

// ObserveGenerationResult counts one per-URL generation attempt.
func ObserveGenerationResult(ok bool) {
	if generationResultsTotal == nil {
		return
	}
	generationResultsTotal.WithLabelValues(outcome(ok)).Inc()
}

// ObserveCreditsDebited accumulates settled debits per phase.
func ObserveCreditsDebited(phase string, halfUnits int64) {
	if creditsDebitedTotal == nil || halfUnits <= 0 {
		return
	}
	creditsDebitedTotal.WithLabelValues(phase).Add(float64(halfUnits))
}

// ObserveJobStatus counts a job reaching the end of a phase.
func ObserveJobStatus(status string) {
	if jobsTotal == nil {
		return
	}
	jobsTotal.WithLabelValues(status).Inc()
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
