// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator runs a set of detectors concurrently over one document
// and collects their candidate spans together with an execution report.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"phi-guard/internal/detector"
	"phi-guard/internal/observability"
	"phi-guard/internal/resilience"
	"phi-guard/internal/span"
)

var (
	// ErrCancelled is returned when the caller abandons a document mid-run.
	ErrCancelled = errors.New("detection cancelled")

	// ErrNoDetectors is returned when a run is started without detectors.
	ErrNoDetectors = errors.New("no detectors")
)

// Orchestrator fans a document out to detectors. It holds no per-document state
// and may be shared by concurrent runs.
type Orchestrator struct {
	timeout     time.Duration
	concurrency int
	retry       resilience.RetryConfig
	logger      *slog.Logger
	observer    observability.Observer
	metrics     *Metrics
	arenas      *span.ArenaPool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout bounds each detector execution. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithConcurrency limits how many detectors run at once. Zero or less means one
// goroutine per detector.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) { o.concurrency = n }
}

// WithRetry sets the retry policy for transient detector errors.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *Orchestrator) { o.retry = cfg }
}

// WithLogger sets the logger used for detector failures.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver sets the timing observer.
func WithObserver(obs observability.Observer) Option {
	return func(o *Orchestrator) { o.observer = observability.OrNop(obs) }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator. By default detectors are unbounded in time and
// are not retried.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		retry:    resilience.NoRetry(),
		logger:   slog.New(slog.DiscardHandler),
		observer: observability.Nop,
		arenas:   span.NewArenaPool(64),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run invokes every detector against text.
func (o *Orchestrator) Run(ctx context.Context, text string, detectors []detector.Detector) (*Result, error) {
	return o.RunDocument(ctx, "", text, detectors)
}

// RunDocument invokes every detector against text and waits for all of them to
// finish before returning. A failing detector is recorded in the report and its
// spans are excluded; it never aborts the run. If ctx is cancelled the partial
// results are discarded and the error wraps ErrCancelled; the report is still
// returned.
func (o *Orchestrator) RunDocument(ctx context.Context, docID, text string, detectors []detector.Detector) (*Result, error) {
	if len(detectors) == 0 {
		return nil, ErrNoDetectors
	}

	report := ExecutionReport{
		RunID:      uuid.NewString(),
		DocumentID: docID,
		TextLength: len(text),
		StartedAt:  time.Now(),
		Detectors:  make([]DetectorReport, len(detectors)),
	}
	if docID == "" {
		docID = report.RunID
	}
	done := o.observer.StartTiming("orchestrator", "run", docID)

	found := make([][]span.Span, len(detectors))

	g, gctx := errgroup.WithContext(ctx)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, d := range detectors {
		g.Go(func() error {
			found[i], report.Detectors[i] = o.runDetector(gctx, d, text)
			return nil
		})
	}
	// Detector failures are isolated, so Wait only acts as the join barrier.
	_ = g.Wait()

	report.Elapsed = time.Since(report.StartedAt)
	for _, r := range report.Detectors {
		if r.Failed() {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}

	if err := ctx.Err(); err != nil {
		report.Cancelled = true
		o.metrics.RecordRun(true)
		done(false, map[string]interface{}{"error": err.Error()})
		return &Result{Spans: []span.Span{}, Report: report}, fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	arena := o.arenas.Acquire()
	defer o.arenas.Release(arena)
	for i := range found {
		for _, s := range found[i] {
			arena.Add(s)
		}
	}
	spans := arena.Spans()
	report.TotalSpans = len(spans)

	o.metrics.RecordRun(false)
	done(true, map[string]interface{}{
		"span_count": len(spans),
		"detectors":  len(detectors),
		"failed":     report.Failed,
	})

	return &Result{Spans: spans, Report: report}, nil
}

func (o *Orchestrator) runDetector(ctx context.Context, d detector.Detector, text string) ([]span.Span, DetectorReport) {
	name := d.Name()
	rep := DetectorReport{FilterType: name}
	start := time.Now()

	dctx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	retry := o.retry
	retry.OnRetry = func(attempt int, err error) {
		o.logger.Debug("retrying detector", "detector", name, "attempt", attempt, "error", err)
	}

	spans, err := resilience.RetryWithResult(dctx, retry, func(ctx context.Context) ([]span.Span, error) {
		rep.Attempts++
		return o.invoke(ctx, d, text)
	})
	if err == nil {
		spans, err = checkOutput(name, text, spans)
	}
	rep.Elapsed = time.Since(start)

	if err != nil {
		classified := resilience.ClassifyError(err)
		rep.Error = classified.Error()
		rep.ErrorType = classified.Type.String()
		rep.TimedOut = classified.Type == resilience.ErrorTypeTimeout && ctx.Err() == nil
		if ctx.Err() == nil {
			o.logger.Warn("detector failed",
				"detector", name,
				"error", rep.Error,
				"error_type", rep.ErrorType)
		}
		o.metrics.RecordDetector(rep)
		return nil, rep
	}

	rep.SpansDetected = len(spans)
	o.metrics.RecordDetector(rep)
	return spans, rep
}

type outcome struct {
	spans []span.Span
	err   error
}

// invoke calls the detector in its own goroutine so that a detector which
// ignores its context still cannot hold the run past the deadline. A result
// that arrives late is dropped.
func (o *Orchestrator) invoke(ctx context.Context, d detector.Detector, text string) ([]span.Span, error) {
	ch := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: resilience.NewPanicError(r)}
			}
		}()
		spans, err := d.Detect(ctx, text)
		ch <- outcome{spans: spans, err: err}
	}()

	select {
	case out := <-ch:
		return out.spans, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// checkOutput validates every span against the document. One bad span
// invalidates the detector's whole output.
func checkOutput(name, text string, spans []span.Span) ([]span.Span, error) {
	out := make([]span.Span, 0, len(spans))
	for i, s := range spans {
		if err := s.ValidateAgainst(text); err != nil {
			return nil, &resilience.ClassifiedError{
				Original: err,
				Type:     resilience.ErrorTypeInvalidOutput,
				Message:  fmt.Sprintf("span %d from %s: %v", i, name, err),
			}
		}
		if s.Detector == "" {
			s = s.WithDetector(name)
		}
		out = append(out, s)
	}
	return out, nil
}
