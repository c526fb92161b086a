// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ensemble fuses independent confidence signals about one candidate
// span into a single score and a redact/skip/uncertain recommendation.
package ensemble

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// ErrInvalidConfig is returned for out-of-range voter settings.
var ErrInvalidConfig = errors.New("invalid ensemble config")

// Source identifies the kind of evidence a signal carries.
type Source string

const (
	SourcePattern       Source = "PATTERN"
	SourceDictionary    Source = "DICTIONARY"
	SourceContext       Source = "CONTEXT"
	SourceStructure     Source = "STRUCTURE"
	SourceLabel         Source = "LABEL"
	SourceChaosAdjusted Source = "CHAOS_ADJUSTED"
)

// Signal is one piece of weighted evidence.
type Signal struct {
	Source     Source  `json:"source" yaml:"source"`
	Weight     float64 `json:"weight" yaml:"weight"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Reason     string  `json:"reason" yaml:"reason"`
}

// Recommendation is the voter's verdict.
type Recommendation string

const (
	Redact    Recommendation = "REDACT"
	Skip      Recommendation = "SKIP"
	Uncertain Recommendation = "UNCERTAIN"
)

// Strategy selects the fusion rule.
type Strategy string

const (
	// StrategyGeometric is the weighted geometric mean of confidences.
	StrategyGeometric Strategy = "geometric"
	// StrategyBayesian averages log-odds and anchors them on a prior.
	StrategyBayesian Strategy = "bayesian"
)

const (
	// confidences are floored here before taking logs
	epsilon = 1e-6
	// a signal above this confidence votes "is PHI"
	neutralMidpoint = 0.5
)

// Vote is the fused result for one candidate.
type Vote struct {
	Signals        []Signal       `json:"signals" yaml:"signals"`
	CombinedScore  float64        `json:"combined_score" yaml:"combined_score"`
	BaseScore      float64        `json:"base_score" yaml:"base_score"`
	Agreement      float64        `json:"agreement" yaml:"agreement"`
	Recommendation Recommendation `json:"recommendation" yaml:"recommendation"`
	DominantSignal string         `json:"dominant_signal,omitempty" yaml:"dominant_signal,omitempty"`
	Explanation    string         `json:"explanation" yaml:"explanation"`
}

// Config holds voter settings.
type Config struct {
	Strategy        Strategy `yaml:"strategy" json:"strategy"`
	RedactThreshold float64  `yaml:"redact_threshold" json:"redact_threshold"`
	SkipThreshold   float64  `yaml:"skip_threshold" json:"skip_threshold"`
	// Prior is the base rate used by the bayesian strategy
	Prior float64 `yaml:"prior" json:"prior"`
	// Agreement adjustment bounds
	MaxBoost            float64 `yaml:"max_boost" json:"max_boost"`
	MaxPenalty          float64 `yaml:"max_penalty" json:"max_penalty"`
	AgreementAdjustment bool    `yaml:"agreement_adjustment" json:"agreement_adjustment"`
}

// DefaultConfig returns the default voter configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:            StrategyGeometric,
		RedactThreshold:     0.70,
		SkipThreshold:       0.30,
		Prior:               0.5,
		MaxBoost:            0.10,
		MaxPenalty:          0.20,
		AgreementAdjustment: true,
	}
}

// Validate checks that thresholds are ordered probabilities and the strategy is
// known.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyGeometric, StrategyBayesian:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, c.Strategy)
	}
	for name, v := range map[string]float64{
		"redact_threshold": c.RedactThreshold,
		"skip_threshold":   c.SkipThreshold,
		"max_boost":        c.MaxBoost,
		"max_penalty":      c.MaxPenalty,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.SkipThreshold >= c.RedactThreshold {
		return fmt.Errorf("%w: skip_threshold %.2f must be below redact_threshold %.2f",
			ErrInvalidConfig, c.SkipThreshold, c.RedactThreshold)
	}
	if !(c.Prior > 0 && c.Prior < 1) {
		return fmt.Errorf("%w: prior must be within (0,1), got %v", ErrInvalidConfig, c.Prior)
	}
	return nil
}

// Voter applies a Config to signal sets. It is immutable and safe for
// concurrent use.
type Voter struct {
	cfg    Config
	logger *slog.Logger
}

// NewVoter validates cfg and creates a voter. A nil logger discards.
func NewVoter(cfg Config, logger *slog.Logger) (*Voter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Voter{cfg: cfg, logger: logger}, nil
}

// Config returns the voter's configuration.
func (v *Voter) Config() Config {
	return v.cfg
}

// Vote fuses signals. Signals with a non-positive or non-finite weight carry no
// evidence; with none left the result is a zero-score SKIP.
func (v *Voter) Vote(signals []Signal) Vote {
	vote := Vote{Signals: make([]Signal, len(signals))}
	used := make([]Signal, 0, len(signals))
	for i, s := range signals {
		s.Confidence = sanitize(s.Confidence)
		vote.Signals[i] = s
		if s.Weight > 0 && !math.IsInf(s.Weight, 1) {
			used = append(used, s)
		}
	}

	if len(used) == 0 {
		vote.Recommendation = Skip
		vote.Explanation = "SKIP: no evidence"
		return vote
	}

	switch v.cfg.Strategy {
	case StrategyBayesian:
		vote.BaseScore = bayesian(used, v.cfg.Prior)
	default:
		vote.BaseScore = geometric(used)
	}

	h := agreementEntropy(used)
	vote.Agreement = 1 - h
	vote.CombinedScore = vote.BaseScore
	if v.cfg.AgreementAdjustment {
		factor := 1 + v.cfg.MaxBoost*(1-h) - v.cfg.MaxPenalty*h
		vote.CombinedScore = clamp01(vote.BaseScore * factor)
	}

	vote.Recommendation = v.decide(vote.CombinedScore)
	vote.DominantSignal = string(dominant(used).Source)
	vote.Explanation = v.explain(vote, used)

	v.logger.Debug("ensemble vote",
		"signals", len(used),
		"score", vote.CombinedScore,
		"recommendation", vote.Recommendation)

	return vote
}

func (v *Voter) decide(score float64) Recommendation {
	switch {
	case score >= v.cfg.RedactThreshold:
		return Redact
	case score <= v.cfg.SkipThreshold:
		return Skip
	default:
		return Uncertain
	}
}

// geometric computes exp(Σ w·ln c / Σ w).
func geometric(signals []Signal) float64 {
	var num, den float64
	for _, s := range signals {
		num += s.Weight * math.Log(math.Max(s.Confidence, epsilon))
		den += s.Weight
	}
	return clamp01(math.Exp(num / den))
}

// bayesian computes sigmoid(Σ w·logit(c) / Σ w + logit(prior)).
func bayesian(signals []Signal, prior float64) float64 {
	var num, den float64
	for _, s := range signals {
		num += s.Weight * logit(s.Confidence)
		den += s.Weight
	}
	return clamp01(sigmoid(num/den + logit(prior)))
}

// agreementEntropy is the binary Shannon entropy of the positive/negative split
// of signals, which already lies in [0,1].
func agreementEntropy(signals []Signal) float64 {
	positive := 0
	for _, s := range signals {
		if s.Confidence > neutralMidpoint {
			positive++
		}
	}
	p := float64(positive) / float64(len(signals))
	if p == 0 || p == 1 {
		return 0
	}
	return -(p*math.Log2(p) + (1-p)*math.Log2(1-p))
}

// dominant returns the signal with the highest weight × confidence; the first
// one wins ties.
func dominant(signals []Signal) Signal {
	best := signals[0]
	for _, s := range signals[1:] {
		if s.Weight*s.Confidence > best.Weight*best.Confidence {
			best = s
		}
	}
	return best
}

func (v *Voter) explain(vote Vote, used []Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: score %.2f (%s %.2f, agreement %.2f); ",
		vote.Recommendation, vote.CombinedScore, v.cfg.Strategy, vote.BaseScore, vote.Agreement)
	for i, s := range used {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %.2f×%.2f", s.Source, s.Confidence, s.Weight)
		if s.Reason != "" {
			fmt.Fprintf(&b, " (%s)", s.Reason)
		}
	}
	fmt.Fprintf(&b, "; dominant %s", vote.DominantSignal)
	return b.String()
}

func sanitize(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return clamp01(c)
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func logit(p float64) float64 {
	p = math.Max(epsilon, math.Min(1-epsilon, p))
	return math.Log(p / (1 - p))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
