// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"phi-guard/internal/config"
	"phi-guard/internal/evaluation"
	"phi-guard/internal/metrics"
	"phi-guard/internal/observability"
	"phi-guard/internal/pipeline"
	"phi-guard/internal/span"

	"golang.org/x/sync/errgroup"
)

// Processor is the part of the pipeline the runner needs.
type Processor interface {
	Process(ctx context.Context, docID, text string) (*pipeline.Result, error)
}

// DocumentReport is the outcome for one document.
type DocumentReport struct {
	ID        string                 `json:"id" yaml:"id"`
	Counts    evaluation.Counts      `json:"counts" yaml:"counts"`
	Strict    evaluation.ModeResults `json:"strict" yaml:"strict"`
	Uncertain int                    `json:"uncertain" yaml:"uncertain"`
	Failed    []string               `json:"failed_detectors,omitempty" yaml:"failed_detectors,omitempty"`

	// Ground truth the pipeline left in the text
	Missed []evaluation.Entity `json:"missed,omitempty" yaml:"missed,omitempty"`
}

// TypeReport scores one canonical PHI type across the corpus.
type TypeReport struct {
	Type    span.Type              `json:"type" yaml:"type"`
	Results evaluation.Results     `json:"results" yaml:"results"`
	Metrics metrics.AllModeMetrics `json:"metrics" yaml:"metrics"`
}

// Report is the scored benchmark run.
type Report struct {
	Corpus      string                  `json:"corpus" yaml:"corpus"`
	Documents   int                     `json:"documents" yaml:"documents"`
	Annotations int                     `json:"annotations" yaml:"annotations"`
	Elapsed     time.Duration           `json:"elapsed_ns" yaml:"elapsed"`
	Results     evaluation.Results      `json:"results" yaml:"results"`
	Metrics     metrics.AllModeMetrics  `json:"metrics" yaml:"metrics"`
	HIPAA       metrics.HIPAAAssessment `json:"hipaa" yaml:"hipaa"`
	ByType      []TypeReport            `json:"by_type" yaml:"by_type"`
	PerDocument []DocumentReport        `json:"per_document" yaml:"per_document"`
}

// Runner evaluates a Processor over a corpus.
type Runner struct {
	processor   Processor
	aligner     *evaluation.Aligner
	calculator  *metrics.Calculator
	concurrency int
	logger      *slog.Logger
	observer    observability.Observer
}

// NewRunner creates a runner scoring with the evaluation settings in cfg. A nil
// logger discards.
func NewRunner(p Processor, cfg config.EvaluationConfig, logger *slog.Logger, observer observability.Observer) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		processor:   p,
		aligner:     evaluation.NewAligner(cfg.PartialThreshold, cfg.TypeAliases),
		calculator:  metrics.NewCalculator(cfg.TrueNegatives),
		concurrency: cfg.Concurrency,
		logger:      logger,
		observer:    observability.OrNop(observer),
	}
}

type docOutcome struct {
	results evaluation.Results
	byType  map[span.Type]evaluation.Results
	report  DocumentReport
}

// Run processes every document, aligns the spans decided REDACT against the
// annotations and scores the corpus. Any document failure fails the run.
func (r *Runner) Run(ctx context.Context, corpus *Corpus) (*Report, error) {
	start := time.Now()
	done := r.observer.StartTiming("benchmark", "run", corpus.Name)

	outcomes := make([]docOutcome, len(corpus.Documents))
	g, gctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i, doc := range corpus.Documents {
		g.Go(func() error {
			out, err := r.runDocument(gctx, doc)
			if err != nil {
				return fmt.Errorf("document %s: %w", doc.ID, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		done(false, map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	perDoc := make([]evaluation.Results, len(outcomes))
	perDocTypes := make([]map[span.Type]evaluation.Results, len(outcomes))
	report := &Report{
		Corpus:      corpus.Name,
		Documents:   len(corpus.Documents),
		Annotations: corpus.Annotated(),
		PerDocument: make([]DocumentReport, len(outcomes)),
	}
	for i, o := range outcomes {
		perDoc[i] = o.results
		perDocTypes[i] = o.byType
		report.PerDocument[i] = o.report
	}

	report.Results = evaluation.Aggregate(perDoc...)
	// alignments stay with the per-document reports
	report.Results.Alignments = nil
	report.Metrics = r.calculator.CalculateAllModes(report.Results)
	report.HIPAA = metrics.AssessHIPAACompliance(report.Metrics)

	byType := evaluation.AggregateByType(perDocTypes...)
	for _, t := range slices.Sorted(maps.Keys(byType)) {
		res := byType[t]
		res.Alignments = nil
		report.ByType = append(report.ByType, TypeReport{
			Type:    t,
			Results: res,
			Metrics: r.calculator.CalculateAllModes(res),
		})
	}

	report.Elapsed = time.Since(start)
	r.logger.Info("benchmark complete",
		"corpus", corpus.Name,
		"documents", report.Documents,
		"strict_sensitivity", report.Metrics.Strict.Sensitivity,
		"risk", report.HIPAA.RiskLevel)
	done(true, map[string]interface{}{
		"documents":  report.Documents,
		"risk_level": string(report.HIPAA.RiskLevel),
	})

	return report, nil
}

func (r *Runner) runDocument(ctx context.Context, doc Document) (docOutcome, error) {
	res, err := r.processor.Process(ctx, doc.ID, doc.Text)
	if err != nil {
		return docOutcome{}, err
	}

	predictions := evaluation.FromSpans(res.Redacted())
	results, err := r.aligner.Align(predictions, doc.Annotations)
	if err != nil {
		return docOutcome{}, err
	}
	byType, err := r.aligner.AlignByType(predictions, doc.Annotations)
	if err != nil {
		return docOutcome{}, err
	}

	dr := DocumentReport{
		ID:        doc.ID,
		Counts:    results.Counts(),
		Strict:    results.Strict,
		Uncertain: len(res.Uncertain()),
	}
	for _, d := range res.Report.Failures() {
		dr.Failed = append(dr.Failed, d.FilterType)
	}
	for _, a := range results.Alignments {
		if a.Prediction == nil && a.GroundTruth != nil {
			dr.Missed = append(dr.Missed, *a.GroundTruth)
		}
	}

	return docOutcome{results: results, byType: byType, report: dr}, nil
}
