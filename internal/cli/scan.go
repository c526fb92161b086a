// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"path/filepath"

	"phi-guard/internal/extract"
	"phi-guard/internal/formatters"
	"phi-guard/internal/pipeline"

	"github.com/spf13/cobra"
)

type scanOptions struct {
	format      string
	style       string
	detectors   []string
	output      string
	metricsFile string
	verbose     bool
	showMatch   bool
}

func newScanCommand(global *globalOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan <file|->",
		Short: "Detect and redact PHI in a document",
		Long: `Scan a plain-text or PDF document for PHI and print the redacted text.
Use "-" to read from standard input. Structured formats (json, yaml) print
the decisions and the detector execution report instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json, yaml")
	cmd.Flags().StringVar(&opts.style, "style", "", "replacement style: brackets, asterisks, empty, preserve")
	cmd.Flags().StringSliceVar(&opts.detectors, "detectors", nil, "detectors to run (default: all)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write output to file instead of stdout")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics for the run to this file")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "list every decision with its signals")
	cmd.Flags().BoolVar(&opts.showMatch, "show-match", false, "show the original text of detected spans")
	return cmd
}

func runScan(cmd *cobra.Command, global *globalOptions, opts *scanOptions, path string) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}

	env, err := global.setup(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	if opts.style != "" {
		env.cfg.Redaction.Style = opts.style
	}
	if len(opts.detectors) > 0 {
		env.cfg.Detectors.Enabled = opts.detectors
	}

	p, err := pipeline.New(pipeline.Env{
		Logger:   env.logger,
		Observer: env.observer,
		Metrics:  env.registry,
		Config:   env.cfg,
	})
	if err != nil {
		return err
	}

	var doc *extract.Document
	if path == "-" {
		doc, err = extract.Read(cmd.InOrStdin())
		if err == nil {
			doc.Path = "stdin"
		}
	} else {
		doc, err = extract.Load(cmd.Context(), path)
	}
	if err != nil {
		return err
	}
	env.logger.Debug("document loaded", "path", doc.Path, "format", doc.Format, "bytes", len(doc.Text), "pages", doc.Pages)

	result, err := p.Process(cmd.Context(), filepath.Base(doc.Path), doc.Text)
	if err != nil {
		return fmt.Errorf("scan %s: %w", doc.Path, err)
	}

	rendered, err := formatters.ExportScan(opts.format, result, global.formatterOptions(cmd.OutOrStdout(), opts.verbose, opts.showMatch))
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, opts.output, rendered); err != nil {
		return err
	}
	return writeMetrics(opts.metricsFile, env.registry)
}
