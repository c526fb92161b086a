// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for document processing. A nil *Metrics
// records nothing.
type Metrics struct {
	documents *prometheus.CounterVec
	duration  prometheus.Histogram
	decisions *prometheus.CounterVec
}

// NewMetrics creates pipeline collectors registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		documents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phi_guard_documents_total",
				Help: "Total number of processed documents by result",
			},
			[]string{"result"},
		),

		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "phi_guard_document_duration_seconds",
				Help:    "End-to-end processing time per document in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
			},
		),

		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phi_guard_decisions_total",
				Help: "Total number of span decisions by recommendation and PHI type",
			},
			[]string{"recommendation", "type"},
		),
	}
}

func (m *Metrics) recordDocument(ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "error"
	}
	m.documents.WithLabelValues(result).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) recordDecision(d Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(d.Recommendation), string(d.Span.Type)).Inc()
}
