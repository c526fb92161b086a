// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Stepper is implemented by observers that trace the stages of a document run.
type Stepper interface {
	StartStep(component, step, documentID string) func(success bool, details string)
	LogDetail(component, detail string)
	LogMetric(component, metric string, value interface{})
}

// DebugObserver provides detailed step-by-step debugging of a document run
type DebugObserver struct {
	*StandardObserver
	indent int
}

// NewDebugObserver creates a debug observer with step-by-step logging
func NewDebugObserver(writer io.Writer) *DebugObserver {
	return &DebugObserver{
		StandardObserver: NewStandardObserver(ObservabilityDebug, writer),
	}
}

// StartStep begins a processing step with indentation. Documents processed in
// parallel share one indent level, so their lines may interleave.
func (d *DebugObserver) StartStep(component, step, documentID string) func(success bool, details string) {
	start := time.Now()
	d.mu.Lock()
	d.printf("🔄 %s: %s (%s)\n", component, step, documentID)
	d.indent++
	d.mu.Unlock()

	return func(success bool, details string) {
		elapsed := time.Since(start).Milliseconds()
		d.mu.Lock()
		defer d.mu.Unlock()
		d.indent--
		if success {
			d.printf("✅ %s: %s completed (%dms) %s\n", component, step, elapsed, details)
		} else {
			d.printf("❌ %s: %s failed (%dms) %s\n", component, step, elapsed, details)
		}
	}
}

// LogDetail logs a detail within the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("   → %s: %s\n", component, detail)
}

// LogMetric logs a metric value
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.printf("   📊 %s: %s = %v\n", component, metric, value)
}

// printf writes one indented line. Callers hold d.mu.
func (d *DebugObserver) printf(format string, args ...interface{}) {
	if d.writer == nil {
		return
	}
	fmt.Fprint(d.writer, strings.Repeat("  ", max(d.indent, 0)))
	fmt.Fprintf(d.writer, format, args...)
}
