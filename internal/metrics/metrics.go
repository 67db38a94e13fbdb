package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartoonbox_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cartoonbox_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Library Metrics
	LibraryOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartoonbox_library_ops_total",
			Help: "Total number of library service operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cartoonbox_store_op_duration_seconds",
			Help:    "Library store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	SignInsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cartoonbox_signins_total",
			Help: "Total number of completed Google sign-ins",
		},
	)

	// Catalog Metrics
	CatalogFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartoonbox_catalog_fetches_total",
			Help: "Total number of outbound catalog requests",
		},
		[]string{"endpoint", "status"},
	)

	CatalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cartoonbox_catalog_cache_hits_total",
			Help: "Catalog cache lookups by result",
		},
		[]string{"result"},
	)

	// Export Metrics
	HistoryExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cartoonbox_history_exports_total",
			Help: "Total number of history CSV exports",
		},
	)
)
