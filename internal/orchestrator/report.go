// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"time"

	"phi-guard/internal/span"
)

// DetectorReport is the outcome of one detector on one document.
type DetectorReport struct {
	FilterType    string        `json:"filter_type" yaml:"filter_type"`
	SpansDetected int           `json:"spans_detected" yaml:"spans_detected"`
	Elapsed       time.Duration `json:"elapsed_ns" yaml:"elapsed"`
	Attempts      int           `json:"attempts" yaml:"attempts"`
	Error         string        `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorType     string        `json:"error_type,omitempty" yaml:"error_type,omitempty"`
	TimedOut      bool          `json:"timed_out,omitempty" yaml:"timed_out,omitempty"`
}

// Failed reports whether the detector's spans were excluded.
func (r DetectorReport) Failed() bool {
	return r.Error != ""
}

// ExecutionReport covers every detector given to a run, successful or not, in
// the order the detectors were supplied.
type ExecutionReport struct {
	RunID      string           `json:"run_id" yaml:"run_id"`
	DocumentID string           `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	TextLength int              `json:"text_length" yaml:"text_length"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	Elapsed    time.Duration    `json:"elapsed_ns" yaml:"elapsed"`
	Detectors  []DetectorReport `json:"detectors" yaml:"detectors"`
	TotalSpans int              `json:"total_spans" yaml:"total_spans"`
	Succeeded  int              `json:"succeeded" yaml:"succeeded"`
	Failed     int              `json:"failed" yaml:"failed"`
	Cancelled  bool             `json:"cancelled,omitempty" yaml:"cancelled,omitempty"`
}

// Failures returns the reports of detectors that failed.
func (r *ExecutionReport) Failures() []DetectorReport {
	var out []DetectorReport
	for _, d := range r.Detectors {
		if d.Failed() {
			out = append(out, d)
		}
	}
	return out
}

// Detector returns the report for the named detector.
func (r *ExecutionReport) Detector(name string) (DetectorReport, bool) {
	for _, d := range r.Detectors {
		if d.FilterType == name {
			return d, true
		}
	}
	return DetectorReport{}, false
}

// Result is the raw candidate set of a run plus its report.
type Result struct {
	Spans  []span.Span
	Report ExecutionReport
}
