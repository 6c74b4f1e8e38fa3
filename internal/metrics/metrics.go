// Doughmination - Plural System Dashboard Backend
// Copyright 2026 Doughmination System
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/doughmination/backend

// Package metrics provides Prometheus instrumentation for the backend:
// API endpoint latency and throughput, upstream PluralKit calls, cache
// efficiency, websocket connections and broadcast volume, and circuit
// breaker state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Upstream PluralKit metrics
	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pluralkit_request_duration_seconds",
			Help:    "Duration of upstream PluralKit API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	UpstreamRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pluralkit_request_errors_total",
			Help: "Total number of failed upstream PluralKit API calls",
		},
		[]string{"operation"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache entries removed by expiry or invalidation",
		},
	)

	// WebSocket metrics
	WebSocketClients = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_clients",
			Help: "Current number of connected websocket clients per group",
		},
		[]string{"group"},
	)

	WebSocketBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_broadcasts_total",
			Help: "Total number of broadcast messages per event type",
		},
		[]string{"type"},
	)

	WebSocketSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_send_failures_total",
			Help: "Total number of dropped clients due to send failures",
		},
	)

	// Circuit breaker metrics
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
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through the circuit breaker by outcome",
		},
		[]string{"name", "outcome"},
	)
)

// RecordAPIRequest records latency and outcome of a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the active request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstreamRequest records latency of an upstream call, and the error
// counter when it failed.
func RecordUpstreamRequest(operation string, duration time.Duration, err error) {
	UpstreamRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		UpstreamRequestErrors.WithLabelValues(operation).Inc()
	}
}
