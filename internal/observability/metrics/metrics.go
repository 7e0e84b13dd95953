package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vilatur_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vilatur_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	searchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vilatur_search_requests_total",
		Help: "Directory searches by outcome (unfiltered, matched, fallback, no_match)",
	}, []string{"outcome"})

	listingMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vilatur_listing_mutations_total",
		Help: "Listing writes by operation and result",
	}, []string{"op", "result"})

	imageCleanup = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vilatur_image_cleanup_total",
		Help: "Prior-image cleanup attempts by source and result",
	}, []string{"source", "result"})

	directoryCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vilatur_directory_cache_total",
		Help: "Directory cache lookups by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveSearch counts a search by its outcome.
func ObserveSearch(outcome string) {
	searchRequests.WithLabelValues(outcome).Inc()
}

// ObserveListingMutation counts a create, update or delete with its result.
func ObserveListingMutation(op, result string) {
	listingMutations.WithLabelValues(op, result).Inc()
}

// ObserveImageCleanup counts a prior-image cleanup attempt.
func ObserveImageCleanup(source, result string) {
	imageCleanup.WithLabelValues(source, result).Inc()
}

// ObserveDirectoryCache counts a cache hit, miss or error.
func ObserveDirectoryCache(result string) {
	directoryCache.WithLabelValues(result).Inc()
}

// SearchCount returns the current count for outcome.
func SearchCount(outcome string) prometheus.Counter {
	return searchRequests.WithLabelValues(outcome)
}

// ImageCleanupCount returns the current counter for source and result.
func ImageCleanupCount(source, result string) prometheus.Counter {
	return imageCleanup.WithLabelValues(source, result)
}
