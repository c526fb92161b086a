// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"slices"
	"strings"

	"phi-guard/internal/benchmark"
	"phi-guard/internal/pipeline"
)

// FormatterOptions defines configuration options for formatters
type FormatterOptions struct {
	NoColor   bool // Whether to disable colored output
	Verbose   bool // Whether to include per-span decisions and signals
	ShowMatch bool // Whether to display the original PHI text in decision listings
}

// Formatter interface defines methods that all output formatters must implement
type Formatter interface {
	// FormatScan renders the result of processing one document
	FormatScan(result *pipeline.Result, options FormatterOptions) (string, error)

	// FormatBenchmark renders a scored benchmark run
	FormatBenchmark(report *benchmark.Report, options FormatterOptions) (string, error)

	// Name returns the name of the formatter (e.g., "json", "text")
	Name() string

	// Description returns a brief description of what this formatter outputs
	Description() string

	// FileExtension returns the recommended file extension for this format
	FileExtension() string
}

// Registry holds all registered formatters
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates a new formatter registry
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds a formatter to the registry
func (r *Registry) Register(formatter Formatter) {
	r.formatters[formatter.Name()] = formatter
}

// Get retrieves a formatter by name
func (r *Registry) Get(name string) (Formatter, bool) {
	formatter, exists := r.formatters[name]
	return formatter, exists
}

// List returns all registered formatter names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry is the global formatter registry. Formatter packages add
// themselves from init.
var DefaultRegistry = NewRegistry()

// Register is a convenience function to register a formatter with the default registry
func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

// Get is a convenience function to get a formatter from the default registry
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List is a convenience function to list all formatters in the default registry
func List() []string {
	return DefaultRegistry.List()
}

func lookup(format string) (Formatter, error) {
	formatter, exists := Get(format)
	if !exists {
		return nil, fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(List(), ", "))
	}
	return formatter, nil
}

// ExportScan formats a document result with the named formatter
func ExportScan(format string, result *pipeline.Result, options FormatterOptions) (string, error) {
	formatter, err := lookup(format)
	if err != nil {
		return "", err
	}
	return formatter.FormatScan(result, options)
}

// ExportBenchmark formats a benchmark report with the named formatter
func ExportBenchmark(format string, report *benchmark.Report, options FormatterOptions) (string, error) {
	formatter, err := lookup(format)
	if err != nil {
		return "", err
	}
	return formatter.FormatBenchmark(report, options)
}

// ScanView is the serializable shape of a scan for the structured formats.
// The original span text is dropped unless ShowMatch is set.
type ScanView struct {
	DocumentID   string              `json:"document_id" yaml:"document_id"`
	RedactedText string              `json:"redacted_text" yaml:"redacted_text"`
	Quality      string              `json:"text_quality" yaml:"text_quality"`
	ChaosScore   float64             `json:"chaos_score" yaml:"chaos_score"`
	Decisions    []pipeline.Decision `json:"decisions" yaml:"decisions"`
	Report       any                 `json:"report" yaml:"report"`
}

// NewScanView builds the structured view of a result.
func NewScanView(result *pipeline.Result, options FormatterOptions) ScanView {
	decisions := make([]pipeline.Decision, len(result.Decisions))
	for i, d := range result.Decisions {
		if !options.ShowMatch {
			d.Span.Text = ""
		}
		if !options.Verbose {
			d.Vote = nil
		}
		decisions[i] = d
	}
	view := ScanView{
		DocumentID: result.DocumentID,
		Quality:    result.Analysis.Quality,
		ChaosScore: result.Analysis.Score,
		Decisions:  decisions,
		Report:     result.Report,
	}
	if result.Redaction != nil {
		view.RedactedText = result.Redaction.Text
	}
	return view
}
