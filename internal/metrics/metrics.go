// Package metrics holds the Prometheus collectors for the HTTP server, the backend client, sitemap
// generation and the response caches.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "reeltrack"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5},
	}, []string{"method", "route"})

	BackendRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Total requests to the upstream backend by endpoint and status.",
	}, []string{"endpoint", "status"})

	BackendRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Upstream backend request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	SitemapBuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sitemap_builds_total",
		Help:      "Sitemap feed builds by category and result (ok, fallback, cached).",
	}, []string{"category", "result"})

	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Cache hits by cache name.",
	}, []string{"cache"})

	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Cache misses by cache name.",
	}, []string{"cache"})
)

// Register registers every collector with reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		BackendRequestsTotal,
		BackendRequestDuration,
		SitemapBuildsTotal,
		CacheHitsTotal,
		CacheMissesTotal,
	)
}

// CacheResult counts a lookup against the named cache.
func CacheResult(cache string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	CacheMissesTotal.WithLabelValues(cache).Inc()
}
