// Copyright (C) 2025 PStryder (interview@legivellum.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package observability provides Prometheus metrics for the InterView
// service.
//
// # Description
//
// Metrics cover the read-resolution engine and its service shell:
//   - HTTP request counts and latencies (by endpoint, status)
//   - Resolutions (by operation, source, outcome) with latency histograms
//   - Accumulated cost units (by operation, source)
//   - Projection cache hits/misses (by entry kind)
//   - Poller rate-limit rejections (by component)
//   - Connected stream clients, audit journal write failures
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Initialize once at startup
// via InitMetrics(); consumers read the DefaultMetrics singleton with a nil
// guard so tests without metrics still run.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "interview"

// Subsystems
const (
	httpSubsystem       = "http"
	resolutionSubsystem = "resolution"
	serviceSubsystem    = "service"
)

// ResolutionMetrics holds all Prometheus metrics for the InterView service.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring query
// resolution, cache efficiency, and downstream pressure. Initialize once at
// startup via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type ResolutionMetrics struct {
	// RequestsTotal counts HTTP requests by endpoint and status code.
	// Labels: endpoint (route path), status (numeric code)
	RequestsTotal *prometheus.CounterVec

	// RequestDurationSeconds measures HTTP request latency.
	// Labels: endpoint, status
	RequestDurationSeconds *prometheus.HistogramVec

	// ResolutionsTotal counts resolved read operations.
	// Labels: operation, source, outcome (ok, degraded, rate_limited,
	// denied, error)
	ResolutionsTotal *prometheus.CounterVec

	// ResolutionDurationSeconds measures end-to-end resolution latency.
	// Labels: operation, outcome
	ResolutionDurationSeconds *prometheus.HistogramVec

	// CostUnitsTotal accumulates query cost units.
	// Labels: operation, source
	CostUnitsTotal *prometheus.CounterVec

	// CacheEventsTotal counts projection cache lookups.
	// Labels: kind (status, headers, receipt), event (hit, miss)
	CacheEventsTotal *prometheus.CounterVec

	// RateLimitRejectionsTotal counts poller calls rejected by the
	// sliding-window limiter.
	// Labels: component
	RateLimitRejectionsTotal *prometheus.CounterVec

	// StreamClients tracks connected resolution-stream WebSocket clients.
	StreamClients prometheus.Gauge

	// AuditWriteFailuresTotal counts audit journal writes that failed.
	AuditWriteFailuresTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of ResolutionMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ResolutionMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once at
// application startup, after the Prometheus registry is available.
//
// # Outputs
//
//   - *ResolutionMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *ResolutionMetrics {
	DefaultMetrics = &ResolutionMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "requests_total",
				Help:      "Total HTTP requests by endpoint and status code",
			},
			[]string{"endpoint", "status"},
		),

		RequestDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: httpSubsystem,
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"endpoint", "status"},
		),

		ResolutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: resolutionSubsystem,
				Name:      "queries_total",
				Help:      "Resolved read operations by operation, source, and outcome",
			},
			[]string{"operation", "source", "outcome"},
		),

		ResolutionDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: resolutionSubsystem,
				Name:      "query_duration_seconds",
				Help:      "End-to-end resolution latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 5.0, 30.0},
			},
			[]string{"operation", "outcome"},
		),

		CostUnitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: resolutionSubsystem,
				Name:      "cost_units_total",
				Help:      "Accumulated query cost units by operation and source",
			},
			[]string{"operation", "source"},
		),

		CacheEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: resolutionSubsystem,
				Name:      "cache_events_total",
				Help:      "Projection cache lookups by entry kind and hit/miss",
			},
			[]string{"kind", "event"},
		),

		RateLimitRejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: resolutionSubsystem,
				Name:      "rate_limit_rejections_total",
				Help:      "Component polls rejected by the sliding-window limiter",
			},
			[]string{"component"},
		),

		StreamClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "stream_clients",
				Help:      "Currently connected resolution-stream clients",
			},
		),

		AuditWriteFailuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: serviceSubsystem,
				Name:      "audit_write_failures_total",
				Help:      "Audit journal writes that failed",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records one completed HTTP request.
//
// # Inputs
//
//   - endpoint: The matched route path.
//   - status: The numeric status code as a string.
//   - seconds: Request duration in seconds.
func (m *ResolutionMetrics) RecordRequest(endpoint, status string, seconds float64) {
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.RequestDurationSeconds.WithLabelValues(endpoint, status).Observe(seconds)
}

// RecordResolution records one resolved read operation.
//
// # Inputs
//
//   - operation: The public operation name.
//   - source: The source that produced the answer (empty for errors).
//   - outcome: ok, degraded, rate_limited, denied, or error.
//   - seconds: End-to-end resolution duration in seconds.
//   - costUnits: The cost units charged for the resolution.
func (m *ResolutionMetrics) RecordResolution(operation, source, outcome string, seconds float64, costUnits int) {
	m.ResolutionsTotal.WithLabelValues(operation, source, outcome).Inc()
	m.ResolutionDurationSeconds.WithLabelValues(operation, outcome).Observe(seconds)
	if costUnits > 0 {
		m.CostUnitsTotal.WithLabelValues(operation, source).Add(float64(costUnits))
	}
}

// RecordCacheEvent records one projection cache lookup.
//
// # Inputs
//
//   - kind: The entry kind (status, headers, receipt).
//   - hit: Whether the lookup was a hit.
func (m *ResolutionMetrics) RecordCacheEvent(kind string, hit bool) {
	event := "miss"
	if hit {
		event = "hit"
	}
	m.CacheEventsTotal.WithLabelValues(kind, event).Inc()
}

// RecordRateLimitRejection records one rejected component poll.
func (m *ResolutionMetrics) RecordRateLimitRejection(component string) {
	m.RateLimitRejectionsTotal.WithLabelValues(component).Inc()
}

// StreamClientConnected increments the connected stream client gauge.
func (m *ResolutionMetrics) StreamClientConnected() {
	m.StreamClients.Inc()
}

// StreamClientDisconnected decrements the connected stream client gauge.
func (m *ResolutionMetrics) StreamClientDisconnected() {
	m.StreamClients.Dec()
}

// RecordAuditWriteFailure increments the audit write failure counter.
func (m *ResolutionMetrics) RecordAuditWriteFailure() {
	m.AuditWriteFailuresTotal.Inc()
}
