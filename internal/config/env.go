// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"
	"time"

	"phi-guard/internal/ensemble"
)

// Environment variables that override file settings
const (
	EnvLogLevel        = "PHI_GUARD_LOG_LEVEL"
	EnvLogFile         = "PHI_GUARD_LOG_FILE"
	EnvStrategy        = "PHI_GUARD_STRATEGY"
	EnvDetectorTimeout = "PHI_GUARD_DETECTOR_TIMEOUT"
	EnvRedactionStyle  = "PHI_GUARD_REDACTION_STYLE"
	EnvDetectors       = "PHI_GUARD_DETECTORS"
)

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup(EnvLogFile); ok && v != "" {
		c.Logging.File = v
	}
	if v, ok := lookup(EnvStrategy); ok && v != "" {
		c.Ensemble.Strategy = ensemble.Strategy(strings.ToLower(v))
	}
	if v, ok := lookup(EnvDetectorTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvDetectorTimeout, err)
		}
		c.Orchestrator.DetectorTimeout = d
	}
	if v, ok := lookup(EnvRedactionStyle); ok && v != "" {
		c.Redaction.Style = v
	}
	if v, ok := lookup(EnvDetectors); ok && v != "" {
		var names []string
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
		c.Detectors.Enabled = names
	}
	return nil
}
