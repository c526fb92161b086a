// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"

	"phi-guard/internal/benchmark"
	"phi-guard/internal/ensemble"
	"phi-guard/internal/evaluation"
	"phi-guard/internal/formatters"
	"phi-guard/internal/metrics"
	"phi-guard/internal/pipeline"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
			"white":  color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Redacted text, with a colored decision table in verbose mode"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

// paint colors s unless colors are disabled for this call
func (f *Formatter) paint(name string, options formatters.FormatterOptions, format string, args ...any) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

// FormatScan returns the redacted document. Verbose mode appends one line per
// decision and any detector failures.
func (f *Formatter) FormatScan(result *pipeline.Result, options formatters.FormatterOptions) (string, error) {
	var builder strings.Builder
	if result.Redaction != nil {
		builder.WriteString(result.Redaction.Text)
	}
	if !options.Verbose {
		return builder.String(), nil
	}

	if !strings.HasSuffix(builder.String(), "\n") {
		builder.WriteString("\n")
	}
	builder.WriteString("\n")
	builder.WriteString(f.paint("white", options, "%-10s %-14s %-8s %-14s %s\n", "DECISION", "TYPE", "CONF", "OFFSETS", "MATCH"))
	builder.WriteString(f.paint("white", options, "%s\n", strings.Repeat("-", 64)))

	for _, d := range result.Decisions {
		match := "[HIDDEN]"
		if options.ShowMatch {
			match = strings.ReplaceAll(d.Span.Text, "\n", " ")
		}
		score := d.Span.Confidence
		if d.Vote != nil {
			score = d.Vote.CombinedScore
		}
		line := fmt.Sprintf("%-10s %-14s %-8.2f %-14s %s", d.Recommendation, d.Span.Type, score,
			fmt.Sprintf("%d-%d", d.Span.Start, d.Span.End), match)
		builder.WriteString(f.paint(decisionColor(d.Recommendation), options, "%s\n", line))
		switch {
		case d.Vote != nil:
			builder.WriteString("           " + d.Vote.Explanation + "\n")
		case d.Filtered != "":
			builder.WriteString("           filtered as " + string(d.Filtered) + "\n")
		}
	}

	for _, r := range result.Report.Failures() {
		builder.WriteString(f.paint("red", options, "detector %s failed (%s): %s\n", r.FilterType, r.ErrorType, r.Error))
	}
	builder.WriteString(fmt.Sprintf("\ntext quality %s (chaos %.2f), %d detectors in %s\n",
		result.Analysis.Quality, result.Analysis.Score, len(result.Report.Detectors), result.Report.Elapsed))

	return builder.String(), nil
}

func decisionColor(r ensemble.Recommendation) string {
	switch r {
	case ensemble.Redact:
		return "red"
	case ensemble.Uncertain:
		return "yellow"
	default:
		return "green"
	}
}

// FormatBenchmark renders the mode table, the per-type table and the HIPAA
// assessment.
func (f *Formatter) FormatBenchmark(report *benchmark.Report, options formatters.FormatterOptions) (string, error) {
	var builder strings.Builder

	builder.WriteString(f.paint("white", options, "Benchmark %s: %d documents, %d annotations, %s\n\n",
		report.Corpus, report.Documents, report.Annotations, report.Elapsed))

	builder.WriteString(f.paint("white", options, "%-10s %6s %6s %6s %8s %11s %9s %6s\n",
		"MODE", "TP", "FP", "FN", "PARTIAL", "SENSITIVITY", "PRECISION", "F1"))
	for _, mode := range evaluation.Modes {
		counts, _ := report.Results.Mode(mode)
		m, _ := report.Metrics.Mode(mode)
		builder.WriteString(fmt.Sprintf("%-10s %6d %6d %6d %8d %11.4f %9.4f %6.4f\n",
			mode, counts.TP, counts.FP, counts.FN, counts.Partial, m.Sensitivity, m.Precision, m.F1))
	}

	if len(report.ByType) > 0 {
		builder.WriteString("\n")
		builder.WriteString(f.paint("white", options, "%-14s %6s %6s %6s %11s %9s\n", "TYPE", "TP", "FP", "FN", "SENSITIVITY", "PRECISION"))
		for _, t := range report.ByType {
			s := t.Metrics.Strict
			line := fmt.Sprintf("%-14s %6d %6d %6d %11.4f %9.4f", t.Type, t.Results.Strict.TP, t.Results.Strict.FP,
				t.Results.Strict.FN, s.Sensitivity, s.Precision)
			name := "green"
			if t.Results.Strict.FN > 0 {
				name = "yellow"
			}
			builder.WriteString(f.paint(name, options, "%s\n", line))
		}
	}

	if options.Verbose {
		for _, d := range report.PerDocument {
			for _, m := range d.Missed {
				builder.WriteString(f.paint("yellow", options, "missed %s %s [%d,%d)\n", d.ID, m.Type, m.Start, m.End))
			}
		}
	}

	hipaa := report.HIPAA
	builder.WriteString("\n")
	builder.WriteString(f.paint(riskColor(hipaa.RiskLevel), options, "HIPAA risk %s (compliant: %t, strict sensitivity %.4f)\n",
		hipaa.RiskLevel, hipaa.Compliant, hipaa.Sensitivity))
	for _, finding := range hipaa.Findings {
		builder.WriteString("  - " + finding + "\n")
	}
	for _, rec := range hipaa.Recommendations {
		builder.WriteString(f.paint("cyan", options, "  > %s\n", rec))
	}

	return builder.String(), nil
}

func riskColor(r metrics.RiskLevel) string {
	switch r {
	case metrics.RiskLow:
		return "green"
	case metrics.RiskMedium:
		return "yellow"
	default:
		return "red"
	}
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
