// Package metrics provides Prometheus metrics for newsdex.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by the counters below.
const (
	OutcomeOK       = "ok"
	OutcomeSkipped  = "skipped"
	OutcomeBlocked  = "blocked"
	OutcomeFailed   = "failed"
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeExpired  = "expired"
	OutcomeBadQuery = "bad_query"
)

var (
	// CrawlTotal counts crawl attempts by outcome.
	CrawlTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "crawl_total",
			Help:      "Total number of crawl attempts",
		},
		[]string{"outcome"},
	)

	// IngestTotal counts documents offered to the index by source and outcome.
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "ingest_total",
			Help:      "Total number of documents offered for indexing",
		},
		[]string{"source", "outcome"},
	)

	// QueryCacheTotal counts query cache lookups by outcome.
	QueryCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "query_cache_total",
			Help:      "Total number of query cache lookups",
		},
		[]string{"outcome"},
	)

	// SearchDuration measures end-to-end search latency.
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsdex",
			Name:      "search_duration_seconds",
			Help:      "Duration of search requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

// RecordCrawl records one crawl attempt.
func RecordCrawl(outcome string) {
	CrawlTotal.WithLabelValues(outcome).Inc()
}

// RecordIngest records one document offered to the index.
func RecordIngest(source, outcome string) {
	IngestTotal.WithLabelValues(source, outcome).Inc()
}

// RecordCacheLookup records one query cache lookup.
func RecordCacheLookup(outcome string) {
	QueryCacheTotal.WithLabelValues(outcome).Inc()
}

// RecordSearch records a completed search.
func RecordSearch(outcome string, seconds float64) {
	SearchDuration.WithLabelValues(outcome).Observe(seconds)
}
