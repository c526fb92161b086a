// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phi-guard/internal/detector"
	"phi-guard/internal/resilience"
	"phi-guard/internal/span"
)

const note = "Patient John Smith, SSN 123-45-6789"

// find returns a detector that reports every occurrence of needle.
func find(name, needle string, typ span.Type) detector.Detector {
	return detector.NewFunc(name, func(ctx context.Context, text string) ([]span.Span, error) {
		var out []span.Span
		for off := 0; ; {
			i := strings.Index(text[off:], needle)
			if i < 0 {
				return out, nil
			}
			s, err := span.New(text, off+i, off+i+len(needle), typ, 0.9)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
			off += i + len(needle)
		}
	})
}

func failing(name string, err error) detector.Detector {
	return detector.NewFunc(name, func(ctx context.Context, text string) ([]span.Span, error) {
		return nil, err
	})
}

func TestRunIsolatesFailures(t *testing.T) {
	o := New()
	dets := []detector.Detector{
		find("names", "John Smith", span.TypeName),
		failing("broken", errors.New("regex exploded")),
		find("ssn", "123-45-6789", span.TypeSSN),
	}

	res, err := o.Run(context.Background(), note, dets)
	require.NoError(t, err)

	require.Len(t, res.Spans, 2)
	assert.Equal(t, "names", res.Spans[0].Detector, "spans are collected in detector order")
	assert.Equal(t, "ssn", res.Spans[1].Detector)

	rep := res.Report
	require.Len(t, rep.Detectors, 3)
	assert.Equal(t, []string{"names", "broken", "ssn"},
		[]string{rep.Detectors[0].FilterType, rep.Detectors[1].FilterType, rep.Detectors[2].FilterType})
	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 2, rep.TotalSpans)
	assert.Equal(t, len(note), rep.TextLength)
	assert.NotEmpty(t, rep.RunID)

	failures := rep.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "broken", failures[0].FilterType)
	assert.Contains(t, failures[0].Error, "regex exploded")
	assert.Equal(t, "Unknown", failures[0].ErrorType)
}

func TestRunRecoversPanics(t *testing.T) {
	panicky := detector.NewFunc("panicky", func(ctx context.Context, text string) ([]span.Span, error) {
		var m map[string]int
		m["boom"]++
		return nil, nil
	})

	res, err := New().Run(context.Background(), note, []detector.Detector{panicky, find("names", "John", span.TypeName)})
	require.NoError(t, err)
	assert.Len(t, res.Spans, 1)

	rep, ok := res.Report.Detector("panicky")
	require.True(t, ok)
	assert.Equal(t, "Panic", rep.ErrorType)
}

func TestRunTimesOutSlowDetector(t *testing.T) {
	stuck := detector.NewFunc("stuck", func(ctx context.Context, text string) ([]span.Span, error) {
		time.Sleep(2 * time.Second) // ignores ctx on purpose
		return nil, nil
	})

	start := time.Now()
	res, err := New(WithTimeout(20*time.Millisecond)).Run(context.Background(), note,
		[]detector.Detector{stuck, find("names", "John", span.TypeName)})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	rep, _ := res.Report.Detector("stuck")
	assert.True(t, rep.TimedOut)
	assert.Equal(t, "Timeout", rep.ErrorType)
	assert.Len(t, res.Spans, 1)
}

func TestRunRejectsMalformedOutput(t *testing.T) {
	liar := detector.NewFunc("liar", func(ctx context.Context, text string) ([]span.Span, error) {
		good, _ := span.New(text, 0, 7, span.TypeName, 0.5)
		bad := span.Span{Start: 8, End: 12, Text: "Jane", Type: span.TypeName, Confidence: 0.5}
		return []span.Span{good, bad}, nil
	})

	res, err := New().Run(context.Background(), note, []detector.Detector{liar})
	require.NoError(t, err)
	assert.Empty(t, res.Spans, "one malformed span discards the detector's whole output")
	assert.Equal(t, "InvalidOutput", res.Report.Detectors[0].ErrorType)
}

func TestRunCancellationDiscardsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	blocker := detector.NewFunc("blocker", func(ctx context.Context, text string) ([]span.Span, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	go func() {
		<-started
		cancel()
	}()

	res, err := New().Run(ctx, note, []detector.Detector{blocker, find("names", "John", span.TypeName)})
	require.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Spans)
	assert.True(t, res.Report.Cancelled)
}

func TestRunRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	flaky := detector.NewFunc("flaky", func(ctx context.Context, text string) ([]span.Span, error) {
		if calls.Add(1) == 1 {
			return nil, resilience.NewTransientError("dictionary loading", nil)
		}
		s, err := span.New(text, 8, 12, span.TypeName, 0.8)
		return []span.Span{s}, err
	})

	retry := resilience.RetryConfig{MaxRetries: 2, InitialInterval: time.Millisecond, Multiplier: 2}
	res, err := New(WithRetry(retry)).Run(context.Background(), note, []detector.Detector{flaky})
	require.NoError(t, err)
	assert.Len(t, res.Spans, 1)
	assert.Equal(t, 2, res.Report.Detectors[0].Attempts)
}

func TestRunDetectorsConcurrently(t *testing.T) {
	a2b := make(chan struct{})
	b2a := make(chan struct{})
	handshake := func(name string, send, recv chan struct{}) detector.Detector {
		return detector.NewFunc(name, func(ctx context.Context, text string) ([]span.Span, error) {
			close(send)
			select {
			case <-recv:
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})
	}

	res, err := New(WithTimeout(time.Second)).Run(context.Background(), note,
		[]detector.Detector{handshake("a", a2b, b2a), handshake("b", b2a, a2b)})
	require.NoError(t, err)
	assert.Zero(t, res.Report.Failed, "detectors must not wait on each other")
}

func TestRunConcurrencyLimit(t *testing.T) {
	var running, peak atomic.Int32
	slow := func(name string) detector.Detector {
		return detector.NewFunc(name, func(ctx context.Context, text string) ([]span.Span, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			return nil, nil
		})
	}

	_, err := New(WithConcurrency(2)).Run(context.Background(), note,
		[]detector.Detector{slow("a"), slow("b"), slow("c"), slow("d"), slow("e")})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRunWithoutDetectors(t *testing.T) {
	_, err := New().Run(context.Background(), note, nil)
	assert.ErrorIs(t, err, ErrNoDetectors)
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	o := New(WithMetrics(NewMetrics(reg)))

	_, err := o.Run(context.Background(), note, []detector.Detector{
		find("names", "John", span.TypeName),
		failing("broken", errors.New("nope")),
	})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				key := mf.GetName()
				for _, lp := range m.GetLabel() {
					key += "," + lp.GetValue()
				}
				counts[key] = c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, counts["phi_guard_orchestrator_runs_total,completed"])
	assert.Equal(t, 1.0, counts["phi_guard_orchestrator_detector_runs_total,names,success"])
	assert.Equal(t, 1.0, counts["phi_guard_orchestrator_detector_runs_total,broken,Unknown"])
	assert.Equal(t, 1.0, counts["phi_guard_orchestrator_spans_detected_total,names"])
}
