// Package observability registers the service's Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	athleteCheckCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "urgency_service",
		Subsystem: "checker",
		Name:      "athlete_checks_total",
		Help:      "Number of per-athlete flag checks executed.",
	})

	fetchFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "urgency_service",
		Subsystem: "checker",
		Name:      "fetch_failures_total",
		Help:      "Number of data-layer fetch failures grouped by category.",
	}, []string{"category"})

	rankingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "urgency_service",
		Subsystem: "checker",
		Name:      "ranking_duration_seconds",
		Help:      "Wall time spent producing one ranked athlete list.",
		Buckets:   prometheus.DefBuckets,
	})

	rankingSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "urgency_service",
		Subsystem: "checker",
		Name:      "last_ranking_size",
		Help:      "Number of athletes in the most recent ranking.",
	})

	lastRankingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "urgency_service",
		Subsystem: "checker",
		Name:      "last_ranking_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completed ranking.",
	})
)

func init() {
	prometheus.MustRegister(athleteCheckCounter, fetchFailureCounter, rankingDuration, rankingSizeGauge, lastRankingGauge)
}

// RecordAthleteChecked increments the per-athlete check counter.
func RecordAthleteChecked() {
	athleteCheckCounter.Inc()
}

// RecordFetchFailure counts one data-layer failure for the given category.
func RecordFetchFailure(category string) {
	fetchFailureCounter.WithLabelValues(category).Inc()
}

// RecordRanking observes the duration and size of a completed ranking.
func RecordRanking(elapsed time.Duration, size int) {
	rankingDuration.Observe(elapsed.Seconds())
	rankingSizeGauge.Set(float64(size))
	lastRankingGauge.SetToCurrentTime()
}
