// Package metrics provides Prometheus metrics for the query cache, remote fetches and mutations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Query cache metrics
	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gocast_cache_lookups_total",
			Help: "Query cache lookups by resource and outcome",
		},
		[]string{"resource", "result"},
	)

	cacheFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gocast_cache_fetches_total",
			Help: "Page fetches issued to the remote API by resource and status",
		},
		[]string{"resource", "status"},
	)

	cacheCoalescedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gocast_cache_coalesced_total",
			Help: "Fetch requests that joined an in-flight fetch for the same key",
		},
		[]string{"resource"},
	)

	cacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gocast_cache_invalidations_total",
			Help: "Cache entries cleared by invalidation",
		},
		[]string{"resource"},
	)

	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gocast_cache_entries",
			Help: "Number of query keys held in the cache",
		},
	)

	fetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gocast_remote_fetch_duration_seconds",
			Help:    "Remote API fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	// Mutation metrics
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gocast_mutations_total",
			Help: "Mutations by kind and result",
		},
		[]string{"kind", "result"},
	)

	// Error sink metrics
	errorsReportedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gocast_errors_reported_total",
			Help: "Errors forwarded to the error notification sink",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordLookup records a cache lookup; hit is false when the lookup triggered a fetch.
func RecordLookup(resource string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(resource, result).Inc()
}

// RecordFetch records a remote page fetch and its duration.
func RecordFetch(resource string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	cacheFetchesTotal.WithLabelValues(resource, status).Inc()
	fetchDuration.WithLabelValues(resource).Observe(seconds)
}

// RecordCoalesced records a request that attached to an in-flight fetch.
func RecordCoalesced(resource string) {
	cacheCoalescedTotal.WithLabelValues(resource).Inc()
}

// RecordInvalidation records cleared entries for a resource.
func RecordInvalidation(resource string, cleared int) {
	cacheInvalidationsTotal.WithLabelValues(resource).Add(float64(cleared))
}

// SetCacheEntries sets the number of cached keys.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// RecordMutation records a finished mutation.
func RecordMutation(kind string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	mutationsTotal.WithLabelValues(kind, result).Inc()
}

// RecordReportedError records an error forwarded to the sink.
func RecordReportedError() {
	errorsReportedTotal.Inc()
}
