// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pipeline runs a document through detection, conflict resolution,
// voting and redaction.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"phi-guard/internal/chaos"
	"phi-guard/internal/config"
	"phi-guard/internal/detector"
	"phi-guard/internal/detectors"
	"phi-guard/internal/ensemble"
	"phi-guard/internal/observability"
	"phi-guard/internal/orchestrator"
	"phi-guard/internal/postfilter"
	"phi-guard/internal/redactors"
	"phi-guard/internal/resilience"
	"phi-guard/internal/resolver"
	"phi-guard/internal/span"

	"github.com/prometheus/client_golang/prometheus"
)

// Env carries the ambient dependencies of a pipeline. Zero fields get
// defaults: a discarding logger, no observer, no metrics and the built-in
// configuration.
type Env struct {
	Logger   *slog.Logger
	Observer observability.Observer
	Metrics  prometheus.Registerer
	Config   *config.Config
}

// Decision is the outcome for one resolved candidate span.
type Decision struct {
	Span           span.Span               `json:"span" yaml:"span"`
	Recommendation ensemble.Recommendation `json:"recommendation" yaml:"recommendation"`

	// Set when the span was confident enough to skip voting
	Passthrough bool `json:"passthrough,omitempty" yaml:"passthrough,omitempty"`

	// Set to the rule that dropped a known false positive before voting
	Filtered postfilter.Reason `json:"filtered,omitempty" yaml:"filtered,omitempty"`

	Vote *ensemble.Vote `json:"vote,omitempty" yaml:"vote,omitempty"`
}

// Result is everything Process learned about a document.
type Result struct {
	DocumentID string                       `json:"document_id" yaml:"document_id"`
	Decisions  []Decision                   `json:"decisions" yaml:"decisions"`
	Redaction  *redactors.Result            `json:"redaction" yaml:"redaction"`
	Analysis   chaos.Analysis               `json:"analysis" yaml:"analysis"`
	Report     orchestrator.ExecutionReport `json:"report" yaml:"report"`
}

// Redacted returns the spans that were decided REDACT, in document order.
func (r *Result) Redacted() []span.Span {
	return r.with(ensemble.Redact)
}

// Uncertain returns the spans left for human review.
func (r *Result) Uncertain() []span.Span {
	return r.with(ensemble.Uncertain)
}

func (r *Result) with(rec ensemble.Recommendation) []span.Span {
	var out []span.Span
	for _, d := range r.Decisions {
		if d.Recommendation == rec {
			out = append(out, d.Span)
		}
	}
	return out
}

// Pipeline is safe for concurrent use once built.
type Pipeline struct {
	logger   *slog.Logger
	observer observability.Observer
	stepper  observability.Stepper
	metrics  *Metrics

	detectors     *detector.Registry
	orchestrator  *orchestrator.Orchestrator
	resolver      *resolver.Resolver
	filter        *postfilter.Filter
	disambiguator *ensemble.Disambiguator
	signals       *ensemble.SignalBuilder
	voter         *ensemble.Voter
	analyzer      *chaos.Analyzer
	policy        redactors.Policy
	passthrough   float64
}

// Option customizes a Pipeline.
type Option func(*options)

type options struct {
	detectors []detector.Detector
}

// WithDetectors replaces the built-in detector set.
func WithDetectors(dets ...detector.Detector) Option {
	return func(o *options) { o.detectors = dets }
}

// New builds a pipeline from env. The built-in detectors are used unless
// WithDetectors is given; the configuration's enabled list filters them.
func New(env Env, opts ...Option) (*Pipeline, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := env.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	logger := env.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	observer := observability.OrNop(env.Observer)

	p := &Pipeline{
		logger:        logger,
		observer:      observer,
		resolver:      resolver.New(logger),
		disambiguator: ensemble.NewDisambiguator(cfg.Ensemble.DisambiguationWindow, logger),
		signals:       ensemble.NewSignalBuilder(cfg.Ensemble.Weights),
		analyzer:      chaos.NewAnalyzer(cfg.Ensemble.ChaosCacheSize),
		passthrough:   cfg.Ensemble.PassthroughConfidence,
	}
	if s, ok := observer.(observability.Stepper); ok {
		p.stepper = s
	}
	if cfg.Ensemble.Postfilter {
		p.filter = postfilter.New(logger)
	}

	var err error
	if p.voter, err = ensemble.NewVoter(cfg.Ensemble.Config, logger); err != nil {
		return nil, err
	}
	if p.policy, err = cfg.RedactionPolicy(); err != nil {
		return nil, err
	}

	registry, err := detector.NewRegistry(o.detectors...)
	if err != nil {
		return nil, err
	}
	if len(o.detectors) == 0 {
		if registry, err = detectors.Defaults(p.analyzer); err != nil {
			return nil, err
		}
	}
	for _, name := range cfg.Detectors.Enabled {
		if _, ok := registry.Get(name); !ok {
			return nil, fmt.Errorf("%w: unknown detector %q", config.ErrInvalidConfig, name)
		}
	}
	if p.detectors, err = detector.NewRegistry(registry.Select(cfg.Detectors.Enabled)...); err != nil {
		return nil, err
	}

	retry := resilience.NoRetry()
	if cfg.Orchestrator.MaxRetries > 0 {
		retry = resilience.DefaultRetryConfig()
		retry.MaxRetries = cfg.Orchestrator.MaxRetries
	}
	orchOpts := []orchestrator.Option{
		orchestrator.WithTimeout(cfg.Orchestrator.DetectorTimeout),
		orchestrator.WithConcurrency(cfg.Orchestrator.Concurrency),
		orchestrator.WithRetry(retry),
		orchestrator.WithLogger(logger),
		orchestrator.WithObserver(observer),
	}
	if env.Metrics != nil {
		orchOpts = append(orchOpts, orchestrator.WithMetrics(orchestrator.NewMetrics(env.Metrics)))
		p.metrics = NewMetrics(env.Metrics)
	}
	p.orchestrator = orchestrator.New(orchOpts...)

	return p, nil
}

// Detectors returns the detectors this pipeline runs.
func (p *Pipeline) Detectors() *detector.Registry {
	return p.detectors
}

// Process detects, resolves, votes on and redacts one document. Spans decided
// UNCERTAIN are reported but left in the text.
func (p *Pipeline) Process(ctx context.Context, docID, text string) (*Result, error) {
	start := time.Now()
	done := p.observer.StartTiming("pipeline", "process", docID)

	result, err := p.process(ctx, docID, text)

	p.metrics.recordDocument(err == nil, time.Since(start))
	if err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	done(true, map[string]interface{}{
		"span_count": len(result.Decisions),
		"redacted":   len(result.Redaction.Mappings),
	})
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, docID, text string) (*Result, error) {
	done := p.step("detect", docID)
	run, err := p.orchestrator.RunDocument(ctx, docID, text, p.detectors.All())
	if err != nil {
		done(false, err.Error())
		return nil, fmt.Errorf("detect %s: %w", docID, err)
	}
	p.metric("candidates", len(run.Spans))
	p.metric("failed_detectors", run.Report.Failed)
	done(true, "")

	done = p.step("disambiguate", docID)
	candidates := p.disambiguate(text, run.Spans)
	p.metric("after_disambiguation", len(candidates))
	done(true, "")

	done = p.step("resolve", docID)
	resolved, err := p.resolver.ResolveDocument(text, candidates)
	if err != nil {
		done(false, err.Error())
		return nil, fmt.Errorf("resolve %s: %w", docID, err)
	}
	p.metric("resolved", len(resolved))
	done(true, "")

	// spans are disjoint after resolution, so a start offset identifies one
	filtered := make(map[int]span.Span)
	if p.filter != nil {
		done = p.step("postfilter", docID)
		_, removed := p.filter.Apply(resolved)
		for _, s := range removed {
			filtered[s.Start] = s
		}
		p.metric("filtered", len(removed))
		done(true, "")
	}

	done = p.step("vote", docID)
	analysis := p.analyzer.Analyze(text)
	p.detail(fmt.Sprintf("text quality %s (chaos %.2f)", analysis.Quality, analysis.Score))

	decisions := make([]Decision, 0, len(resolved))
	var redact []span.Span
	counts := make(map[ensemble.Recommendation]int, 3)
	for _, s := range resolved {
		var d Decision
		if f, ok := filtered[s.Start]; ok {
			reason, _ := f.Meta(postfilter.MetaReason).(string)
			d = Decision{Span: f, Recommendation: ensemble.Skip, Filtered: postfilter.Reason(reason)}
		} else {
			d = p.decide(text, s, &analysis)
		}
		p.metrics.recordDecision(d)
		decisions = append(decisions, d)
		counts[d.Recommendation]++
		if d.Recommendation == ensemble.Redact {
			redact = append(redact, s)
		}
	}
	for _, rec := range []ensemble.Recommendation{ensemble.Redact, ensemble.Uncertain, ensemble.Skip} {
		p.metric(string(rec), counts[rec])
	}
	done(true, "")

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", orchestrator.ErrCancelled, err)
	}

	done = p.step("redact", docID)
	redaction, err := p.policy.Apply(text, redact)
	if err != nil {
		done(false, err.Error())
		return nil, fmt.Errorf("redact %s: %w", docID, err)
	}
	p.metric("replacements", len(redaction.Mappings))
	done(true, "")

	p.logger.Debug("document processed",
		"document", docID,
		"candidates", len(run.Spans),
		"resolved", len(resolved),
		"filtered", len(filtered),
		"redacted", len(redact),
		"quality", analysis.Quality)

	return &Result{
		DocumentID: docID,
		Decisions:  decisions,
		Redaction:  redaction,
		Analysis:   analysis,
		Report:     run.Report,
	}, nil
}

// step opens a traced stage when the observer supports step traces.
func (p *Pipeline) step(stage, docID string) func(success bool, details string) {
	if p.stepper == nil {
		return func(bool, string) {}
	}
	return p.stepper.StartStep("pipeline", stage, docID)
}

func (p *Pipeline) metric(name string, value any) {
	if p.stepper != nil {
		p.stepper.LogMetric("pipeline", name, value)
	}
}

func (p *Pipeline) detail(detail string) {
	if p.stepper != nil {
		p.stepper.LogDetail("pipeline", detail)
	}
}

// disambiguate replaces every set of same-range spans that disagree on type
// with the single span the context supports best.
func (p *Pipeline) disambiguate(text string, spans []span.Span) []span.Span {
	groups := resolver.IdenticalGroups(spans)
	if len(groups) == 0 {
		return spans
	}

	chosen := make(map[[2]int]span.Span, len(groups))
	for _, g := range groups {
		chosen[[2]int{g[0].Start, g[0].End}] = p.disambiguator.ResolveGroup(text, g)
	}

	out := make([]span.Span, 0, len(spans))
	emitted := make(map[[2]int]bool, len(groups))
	for _, s := range spans {
		k := [2]int{s.Start, s.End}
		c, grouped := chosen[k]
		switch {
		case !grouped:
			out = append(out, s)
		case !emitted[k]:
			out = append(out, c)
			emitted[k] = true
		}
	}
	return out
}

func (p *Pipeline) decide(text string, s span.Span, analysis *chaos.Analysis) Decision {
	if s.Confidence >= p.passthrough {
		return Decision{Span: s, Recommendation: ensemble.Redact, Passthrough: true}
	}
	vote := p.voter.Vote(p.signals.Build(text, s, analysis))
	return Decision{Span: s, Recommendation: vote.Recommendation, Vote: &vote}
}
