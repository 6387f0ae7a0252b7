// Vigil - Compliance Event Monitoring and Risk Enrichment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vigil

// Package metrics defines the Prometheus collectors exported on /metrics.
//
// Collectors are registered on the default registry via promauto at init.
// Callers use the Record* helpers rather than touching the vectors directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detection Metrics
	DetectionSweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_detection_sweeps_total",
			Help: "Total number of detection sweeps",
		},
		[]string{"result"}, // "success", "error", "cancelled"
	)

	DetectionSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_detection_sweep_duration_seconds",
			Help:    "Duration of detection sweeps in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DetectionEventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_detection_events_processed_total",
			Help: "Total number of source events evaluated and marked processed",
		},
	)

	DetectionFindingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_detection_findings_created_total",
			Help: "Total number of findings created by detection rules",
		},
		[]string{"severity"},
	)

	DetectionEventsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_detection_events_skipped_total",
			Help: "Events skipped because another sweep already claimed them",
		},
	)

	// Enrichment Metrics
	EnrichmentFindingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_enrichment_findings_total",
			Help: "Total number of findings enriched",
		},
		[]string{"source"}, // "ai", "fallback"
	)

	EnrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_enrichment_duration_seconds",
			Help:    "Duration of a single finding enrichment in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	// AI Client Metrics
	AIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_ai_requests_total",
			Help: "Total number of AI completion requests",
		},
		[]string{"outcome"}, // "success", "error", "timeout", "rate_limited", "rejected"
	)

	AICacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_ai_cache_hits_total",
			Help: "Total number of AI response cache hits",
		},
	)

	AICacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_ai_cache_misses_total",
			Help: "Total number of AI response cache misses",
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

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Metrics
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
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	// NATS Metrics
	NATSFindingsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_findings_published_total",
			Help: "Total number of findings published to NATS",
		},
	)

	NATSEventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nats_events_ingested_total",
			Help: "Total number of source events consumed from NATS",
		},
		[]string{"result"}, // "accepted", "rejected", "error"
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDetectionSweep records the outcome of one detection sweep.
// findingsBySeverity may be nil.
func RecordDetectionSweep(result string, duration time.Duration, eventsProcessed, skipped int, findingsBySeverity map[string]int) {
	DetectionSweepsTotal.WithLabelValues(result).Inc()
	DetectionSweepDuration.Observe(duration.Seconds())
	DetectionEventsProcessed.Add(float64(eventsProcessed))
	DetectionEventsSkipped.Add(float64(skipped))
	for sev, n := range findingsBySeverity {
		DetectionFindingsCreated.WithLabelValues(sev).Add(float64(n))
	}
}

// RecordEnrichment records one enriched finding.
func RecordEnrichment(source string, duration time.Duration) {
	EnrichmentFindingsTotal.WithLabelValues(source).Inc()
	EnrichmentDuration.Observe(duration.Seconds())
}

// RecordAIRequest records an AI completion outcome.
func RecordAIRequest(outcome string) {
	AIRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordAICache records an AI response cache lookup.
func RecordAICache(hit bool) {
	if hit {
		AICacheHits.Inc()
	} else {
		AICacheMisses.Inc()
	}
}

// RecordCircuitBreakerRequest records a call through a named breaker.
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordCircuitBreakerTransition records a state change and updates the state gauge.
func RecordCircuitBreakerTransition(name, from, to string, toValue float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(toValue)
}

// RecordNATSPublish records a published finding.
func RecordNATSPublish() {
	NATSFindingsPublished.Inc()
}

// RecordNATSIngest records an ingested message outcome.
func RecordNATSIngest(result string) {
	NATSEventsIngested.WithLabelValues(result).Inc()
}
