// Package observability exposes Prometheus metrics for sync runs.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fragmentsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_engine",
		Subsystem: "parse",
		Name:      "fragments_total",
		Help:      "Fragments seen by the parser, by result (parsed|skipped).",
	}, []string{"result"})

	sectionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_engine",
		Subsystem: "collect",
		Name:      "section_failures_total",
		Help:      "Sections whose collection failed or timed out.",
	}, []string{"category"})

	sectionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "activity_engine",
		Subsystem: "collect",
		Name:      "section_duration_seconds",
		Help:      "Time spent collecting and parsing one section, retries included.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"outcome"})

	reconcileCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_engine",
		Subsystem: "reconcile",
		Name:      "entries_total",
		Help:      "Catalog reconcile outcomes (created|updated|removed|error).",
	}, []string{"outcome"})

	syncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_engine",
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Sync runs by terminal status.",
	}, []string{"status"})

	syncDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "activity_engine",
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Wall time of a full sync run.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	lastSuccessGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activity_engine",
		Subsystem: "sync",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed sync.",
	})
)

func init() {
	prometheus.MustRegister(fragmentsCounter, sectionFailures, sectionDuration,
		reconcileCounter, syncRuns, syncDuration, lastSuccessGauge)
}

func RecordFragments(parsed, skipped int) {
	fragmentsCounter.WithLabelValues("parsed").Add(float64(parsed))
	fragmentsCounter.WithLabelValues("skipped").Add(float64(skipped))
}

func RecordSection(category string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		sectionFailures.WithLabelValues(category).Inc()
	}
	sectionDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func RecordReconcile(created, updated, removed, errors int) {
	reconcileCounter.WithLabelValues("created").Add(float64(created))
	reconcileCounter.WithLabelValues("updated").Add(float64(updated))
	reconcileCounter.WithLabelValues("removed").Add(float64(removed))
	reconcileCounter.WithLabelValues("error").Add(float64(errors))
}

func RecordSync(status string, d time.Duration, finished time.Time) {
	syncRuns.WithLabelValues(status).Inc()
	syncDuration.Observe(d.Seconds())
	if status == "completed" {
		lastSuccessGauge.Set(float64(finished.Unix()))
	}
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
