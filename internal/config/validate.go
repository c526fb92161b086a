// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"

	"phi-guard/internal/redactors"
	"phi-guard/internal/span"
)

// ErrInvalidConfig is returned for configuration values outside their domain.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidateConfig checks every section and reports all problems at once.
func ValidateConfig(c *Config) error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if err := c.Ensemble.Config.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	if p := c.Ensemble.PassthroughConfidence; p < 0 || p > 1 {
		invalid("passthrough_confidence %v outside [0,1]", p)
	}
	if c.Ensemble.DisambiguationWindow < 0 {
		invalid("disambiguation_window must not be negative")
	}

	if c.Orchestrator.DetectorTimeout < 0 {
		invalid("detector_timeout must not be negative")
	}
	if c.Orchestrator.MaxRetries < 0 {
		invalid("max_retries must not be negative")
	}
	if c.Orchestrator.Concurrency < 0 {
		invalid("concurrency must not be negative")
	}

	if th := c.Evaluation.PartialThreshold; th < 0 || th > 1 {
		invalid("partial_threshold %v outside [0,1]", th)
	}
	if c.Evaluation.TrueNegatives < 0 {
		invalid("true_negatives must not be negative")
	}

	if _, err := c.RedactionPolicy(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	return errors.Join(errs...)
}

// RedactionPolicy builds the replacement policy from the style names.
func (c *Config) RedactionPolicy() (redactors.Policy, error) {
	style, err := redactors.ParseStyle(c.Redaction.Style)
	if err != nil {
		return redactors.Policy{}, err
	}
	policy := redactors.Policy{Style: style, PerType: make(map[span.Type]redactors.Style, len(c.Redaction.PerType))}
	for typ, name := range c.Redaction.PerType {
		s, err := redactors.ParseStyle(name)
		if err != nil {
			return redactors.Policy{}, fmt.Errorf("per_type %s: %w", typ, err)
		}
		policy.PerType[span.NormalizeType(typ)] = s
	}
	return policy, nil
}
