// Package metrics registers the service's prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cragcast"

var (
	weatherCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_cache_total",
			Help:      "Weather cache lookups by result (hit, miss, error).",
		},
		[]string{"kind", "result"},
	)

	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Forecast API calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	upstreamDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Forecast API call latency, retries included.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"provider"},
	)

	cragQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crag_queries_total",
			Help:      "Crag catalog requests by view (list, detail, facets).",
		},
		[]string{"view"},
	)

	datasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "Rows loaded per dataset at startup.",
		},
		[]string{"dataset"},
	)
)

// CacheResult counts one cache lookup. kind is "current" or "forecast".
func CacheResult(kind, result string) {
	weatherCacheTotal.WithLabelValues(kind, result).Inc()
}

// UpstreamCall records one provider call and its latency.
func UpstreamCall(provider, outcome string, took time.Duration) {
	upstreamRequestsTotal.WithLabelValues(provider, outcome).Inc()
	upstreamDurationSeconds.WithLabelValues(provider).Observe(took.Seconds())
}

// CragQuery counts one catalog request.
func CragQuery(view string) {
	cragQueriesTotal.WithLabelValues(view).Inc()
}

// DatasetRows records how many rows a dataset loaded.
func DatasetRows(dataset string, n int) {
	datasetRows.WithLabelValues(dataset).Set(float64(n))
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
