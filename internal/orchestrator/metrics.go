// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for detector orchestration. A nil
// *Metrics records nothing.
type Metrics struct {
	// Document runs by outcome
	runs *prometheus.CounterVec

	// Per-detector executions
	detectorRuns     *prometheus.CounterVec
	detectorDuration *prometheus.HistogramVec
	spansDetected    *prometheus.CounterVec
}

// NewMetrics creates orchestrator collectors registered with reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phi_guard_orchestrator_runs_total",
				Help: "Total number of documents run through the detector set",
			},
			[]string{"result"},
		),

		detectorRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phi_guard_orchestrator_detector_runs_total",
				Help: "Total number of detector executions by outcome",
			},
			[]string{"detector", "outcome"},
		),

		detectorDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phi_guard_orchestrator_detector_duration_seconds",
				Help:    "Duration of a single detector execution in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 16), // 10µs to ~330ms
			},
			[]string{"detector"},
		),

		spansDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phi_guard_orchestrator_spans_detected_total",
				Help: "Total number of candidate spans returned by detectors",
			},
			[]string{"detector"},
		),
	}
}

// RecordRun records a completed or cancelled document run.
func (m *Metrics) RecordRun(cancelled bool) {
	if m == nil {
		return
	}
	result := "completed"
	if cancelled {
		result = "cancelled"
	}
	m.runs.WithLabelValues(result).Inc()
}

// RecordDetector records one detector execution.
func (m *Metrics) RecordDetector(r DetectorReport) {
	if m == nil {
		return
	}
	outcome := "success"
	if r.Failed() {
		outcome = r.ErrorType
	}
	m.detectorRuns.WithLabelValues(r.FilterType, outcome).Inc()
	m.detectorDuration.WithLabelValues(r.FilterType).Observe(r.Elapsed.Seconds())
	if r.SpansDetected > 0 {
		m.spansDetected.WithLabelValues(r.FilterType).Add(float64(r.SpansDetected))
	}
}
