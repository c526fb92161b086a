// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the phi-guard command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"phi-guard/internal/config"
	"phi-guard/internal/formatters"
	_ "phi-guard/internal/formatters/json"
	_ "phi-guard/internal/formatters/text"
	_ "phi-guard/internal/formatters/yaml"
	"phi-guard/internal/observability"
	"phi-guard/internal/version"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// ErrNotCompliant is returned by bench --fail-on-risk when the HIPAA
// assessment does not pass.
var ErrNotCompliant = errors.New("benchmark is not HIPAA compliant")

type globalOptions struct {
	configFile string
	profile    string
	debug      bool
	noColor    bool
}

// runtimeEnv is what every subcommand needs after flags and config are resolved.
type runtimeEnv struct {
	cfg      *config.Config
	logger   *slog.Logger
	observer observability.Observer
	registry *prometheus.Registry
	cleanup  func() error
}

// NewRootCommand builds the command tree. Output goes to the command's
// configured writers so tests can capture it.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "phi-guard",
		Short: "Detect and redact protected health information in documents",
		Long: `phi-guard finds protected health information (PHI) in clinical text,
resolves conflicting detections, decides per span whether to redact, skip or
flag it for review, and benchmarks detection quality against annotated corpora.

Examples:
  # Redact a clinical note
  phi-guard scan note.txt

  # Show every decision with its signals
  phi-guard scan note.txt --verbose

  # Score the detectors against a ground-truth corpus
  phi-guard bench corpus.yaml --fail-on-risk`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file path (default: search standard locations)")
	root.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "", "configuration profile to apply")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "debug logging and step-by-step timing")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newScanCommand(opts), newBenchCommand(opts), newVersionCommand())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads configuration in precedence order: defaults, config file,
// environment, profile, then flags applied by the caller.
func (o *globalOptions) setup(cmd *cobra.Command) (*runtimeEnv, error) {
	cfg, err := config.LoadConfigOrDefault(o.configFile)
	if err != nil {
		// an explicit file must load
		if o.configFile != "" {
			return nil, err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Error loading config file: %v\n", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "Using default configuration\n")
	}

	if o.profile != "" {
		if err := cfg.ApplyProfile(o.profile); err != nil {
			return nil, fmt.Errorf("%w (available: %v)", err, cfg.ListProfiles())
		}
	}
	if o.debug {
		cfg.Logging.Level = "debug"
	}

	logger, cleanup := config.SetupLogger(cfg.Logging)
	env := &runtimeEnv{
		cfg:      cfg,
		logger:   logger,
		observer: observability.Nop,
		registry: prometheus.NewRegistry(),
		cleanup:  cleanup,
	}
	if o.debug {
		env.observer = observability.NewDebugObserver(cmd.ErrOrStderr())
	}
	return env, nil
}

// formatterOptions decides coloring: never for structured formats or when the
// output is not a terminal.
func (o *globalOptions) formatterOptions(out io.Writer, verbose, showMatch bool) formatters.FormatterOptions {
	noColor := o.noColor || os.Getenv("NO_COLOR") != ""
	if f, ok := out.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		noColor = true
	}
	return formatters.FormatterOptions{
		NoColor:   noColor,
		Verbose:   verbose,
		ShowMatch: showMatch,
	}
}

// writeOutput writes the rendered report to path, or to the command output
// when path is empty.
func writeOutput(cmd *cobra.Command, path, rendered string) error {
	if path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), rendered)
		return err
	}
	return os.WriteFile(path, []byte(rendered), 0600)
}

// writeMetrics dumps the run's Prometheus metrics in text exposition format.
func writeMetrics(path string, registry *prometheus.Registry) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, registry)
}

func checkFormat(format string) error {
	if _, ok := formatters.Get(format); !ok {
		return fmt.Errorf("unsupported format '%s'. Available formats: %v", format, formatters.List())
	}
	return nil
}
