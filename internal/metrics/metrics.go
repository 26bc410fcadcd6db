// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

// Package metrics exposes the quota ledger's Prometheus instrumentation:
// append outcomes and latency, projection drift, and HTTP request
// counters, all scraped from /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventstoreAppendTotal counts every Append call by outcome:
	// "committed", "idempotent_replay", "conflict", or "error".
	EventstoreAppendTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstore_append_total",
			Help: "Total number of event store append attempts by outcome",
		},
		[]string{"outcome"},
	)

	// EventstoreAppendDuration measures Append latency end to end,
	// including the stream replay and projection upsert.
	EventstoreAppendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventstore_append_duration_seconds",
			Help:    "Duration of event store append calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// EventstoreStreamVersion observes the resulting stream_version of
	// every successful append, a cheap proxy for stream length/hotness.
	EventstoreStreamVersion = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "eventstore_stream_version",
			Help:    "Stream version reached by successful append calls",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// ProjectionDriftTotal counts accounts where the invariant auditor
	// found account_current disagreeing with a fresh replay.
	ProjectionDriftTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "projection_drift_total",
			Help: "Total number of accounts found with a drifted projection row",
		},
	)

	// HTTPRequestsTotal counts completed HTTP requests by route, method,
	// and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration measures HTTP handler latency by route and method.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

// RecordAppend records the outcome and latency of one Append call.
func RecordAppend(outcome string, duration time.Duration) {
	EventstoreAppendTotal.WithLabelValues(outcome).Inc()
	EventstoreAppendDuration.Observe(duration.Seconds())
}

// RecordStreamVersion observes the stream version reached by a
// successful append.
func RecordStreamVersion(version int64) {
	EventstoreStreamVersion.Observe(float64(version))
}

// RecordProjectionDrift increments the drift counter once per account
// found to have a stale or incorrect projection row.
func RecordProjectionDrift() {
	ProjectionDriftTotal.Inc()
}

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
