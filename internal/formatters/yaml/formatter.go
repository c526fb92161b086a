// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"fmt"

	"phi-guard/internal/benchmark"
	"phi-guard/internal/formatters"
	"phi-guard/internal/pipeline"

	"gopkg.in/yaml.v3"
)

// Formatter implements YAML output formatting
type Formatter struct{}

// NewFormatter creates a new YAML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "yaml"
}

func (f *Formatter) Description() string {
	return "YAML output for configuration-style review"
}

func (f *Formatter) FileExtension() string {
	return ".yaml"
}

func (f *Formatter) FormatScan(result *pipeline.Result, options formatters.FormatterOptions) (string, error) {
	return marshal(formatters.NewScanView(result, options))
}

func (f *Formatter) FormatBenchmark(report *benchmark.Report, options formatters.FormatterOptions) (string, error) {
	return marshal(report)
}

func marshal(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("error formatting YAML: %w", err)
	}
	return string(data), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
