// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"phi-guard/internal/benchmark"
	"phi-guard/internal/formatters"
	"phi-guard/internal/pipeline"

	"github.com/spf13/cobra"
)

type benchOptions struct {
	format      string
	output      string
	metricsFile string
	concurrency int
	verbose     bool
	failOnRisk  bool
}

func newBenchCommand(global *globalOptions) *cobra.Command {
	opts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench <corpus>",
		Short: "Score detection against an annotated corpus",
		Long: `Run every corpus document through the pipeline, align the spans decided
REDACT with the ground-truth annotations and report sensitivity, precision,
F-scores and the HIPAA risk assessment in all five matching modes.

The corpus is YAML or JSON (by extension):

  name: sample
  documents:
    - id: note-1
      text: "Patient John Smith, SSN 123-45-6789"
      annotations:
        - {start: 8, end: 18, type: NAME, text: John Smith}
        - {start: 24, end: 35, type: SSN, text: 123-45-6789}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json, yaml")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write output to file instead of stdout")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics for the run to this file")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "documents processed in parallel (default: from config)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "include per-document results and missed annotations")
	cmd.Flags().BoolVar(&opts.failOnRisk, "fail-on-risk", false, "exit non-zero unless the HIPAA assessment is compliant")
	return cmd
}

func runBench(cmd *cobra.Command, global *globalOptions, opts *benchOptions, path string) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}

	env, err := global.setup(cmd)
	if err != nil {
		return err
	}
	defer env.cleanup()

	if opts.concurrency > 0 {
		env.cfg.Evaluation.Concurrency = opts.concurrency
	}

	corpus, err := benchmark.LoadCorpus(path)
	if err != nil {
		return err
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

	env.logger.Info("benchmark started", "corpus", corpus.Name, "documents", len(corpus.Documents), "detectors", p.Detectors().Names())
	report, err := benchmark.NewRunner(p, env.cfg.Evaluation, env.logger, env.observer).Run(cmd.Context(), corpus)
	if err != nil {
		return err
	}

	rendered, err := formatters.ExportBenchmark(opts.format, report, global.formatterOptions(cmd.OutOrStdout(), opts.verbose, false))
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, opts.output, rendered); err != nil {
		return err
	}
	if err := writeMetrics(opts.metricsFile, env.registry); err != nil {
		return err
	}

	if opts.failOnRisk && !report.HIPAA.Compliant {
		return fmt.Errorf("%w: risk %s, strict sensitivity %.4f", ErrNotCompliant, report.HIPAA.RiskLevel, report.HIPAA.Sensitivity)
	}
	return nil
}
