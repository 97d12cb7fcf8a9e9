// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

// Package metrics exposes Prometheus instrumentation for the cache tiers,
// the storefront fetch paths, the collage layout engine, and the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits per collection and tier",
		},
		[]string{"collection", "tier"}, // tier: "l1" or "l2"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses per collection and tier",
		},
		[]string{"collection", "tier"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total stale or invalid records purged per collection",
		},
		[]string{"collection", "reason"}, // reason: "expired", "legacy_shape", "fingerprint", "manual"
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Durable store failures swallowed at the cache boundary",
		},
		[]string{"collection", "operation"}, // operation: "get", "put", "delete"
	)

	// Enrichment Metrics
	EnrichmentBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_batches_total",
			Help: "Batch enrichment calls by outcome",
		},
		[]string{"outcome"}, // "all_cached", "fetched", "upstream_failed"
	)

	EnrichmentItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrichment_items_total",
			Help: "Items flowing through enrichment by resolution",
		},
		[]string{"resolution"}, // "cache_hit", "fetched", "unresolved"
	)

	// Storefront Fetcher Metrics
	StorefrontRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_requests_total",
			Help: "Requests to the storefront API by endpoint and status class",
		},
		[]string{"endpoint", "status"},
	)

	StorefrontThrottleRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_throttle_retries_total",
			Help: "Retries triggered by 403/429 throttling responses",
		},
	)

	RateLimiterWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rate_limiter_wait_seconds",
			Help:    "Time spent waiting on the sequential fetcher rate limiter",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Collage Metrics
	CollageLayoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collage_layout_duration_seconds",
			Help:    "Time to compute a full collage layout",
			Buckets: prometheus.DefBuckets,
		},
	)

	CollageItemsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collage_items_dropped_total",
			Help: "Items that found no valid placement and were dropped",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	// WebSocket Metrics
	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Currently connected progress-stream clients",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// StatusClass buckets an HTTP status code into "2xx", "4xx", etc. for the
// storefront request counter.
func StatusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "other"
	}
}
