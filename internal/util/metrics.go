package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_queries_total",
		Help: "Total number of catalog listing queries",
	})

	CatalogQueryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_query_latency_seconds",
		Help:    "Latency of catalog listing queries",
		Buckets: prometheus.DefBuckets,
	})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_failures_total",
		Help: "Total number of rejected catalog queries",
	}, []string{"field"})

	ImageSearchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_searches_total",
		Help: "Total number of visual search requests",
	}, []string{"outcome"})

	ImageSearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_search_latency_seconds",
		Help:    "End-to-end latency of visual search requests",
		Buckets: prometheus.DefBuckets,
	})

	EmbeddingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "embedding_extraction_latency_seconds",
		Help:    "Latency of embedding extraction calls",
		Buckets: prometheus.DefBuckets,
	})

	VectorQueryLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vector_query_latency_seconds",
		Help:    "Latency of vector index queries",
		Buckets: prometheus.DefBuckets,
	})

	StaleHitsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stale_vector_hits_dropped_total",
		Help: "Vector index hits dropped because no catalog row resolved",
	})

	FallbackTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fallback_transitions_total",
		Help: "Collaborator health flag transitions",
	}, []string{"collaborator", "state"})

	DistinctCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "distinct_cache_hits_total",
		Help: "Enumeration cache lookups by outcome",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
