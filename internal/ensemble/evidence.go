// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ensemble

import (
	"fmt"
	"regexp"
	"strings"

	"phi-guard/internal/chaos"
	"phi-guard/internal/detector"
	"phi-guard/internal/span"
)

// SignalWeights sets how much each evidence source counts in a vote.
type SignalWeights struct {
	Pattern    float64 `yaml:"pattern" json:"pattern"`
	Dictionary float64 `yaml:"dictionary" json:"dictionary"`
	Context    float64 `yaml:"context" json:"context"`
	Structure  float64 `yaml:"structure" json:"structure"`
	Label      float64 `yaml:"label" json:"label"`
	Chaos      float64 `yaml:"chaos" json:"chaos"`
}

// DefaultSignalWeights returns the standard evidence weights.
func DefaultSignalWeights() SignalWeights {
	return SignalWeights{
		Pattern:    1.0,
		Dictionary: 0.8,
		Context:    0.6,
		Structure:  0.3,
		Label:      0.7,
		Chaos:      0.5,
	}
}

// fieldLabel matches a PHI field label that ends right where a span starts.
var fieldLabel = regexp.MustCompile(`(?i)\b(patient(\s+name)?|name|pt|dob|d\.o\.b\.?|date of birth|birth ?date|mrn|medical record( number| no\.?)?|ssn|social security( number| no\.?)?|phone|tel|fax|e-?mail|address|addr|account( number| no\.?)?|acct|member id|policy( number| no\.?)?|license|zip)\s*(#|:|-)\s*$`)

var (
	// keywords suggesting the span really is PHI of its type
	positiveKeywords = map[span.Type][]string{
		span.TypeName:       {"patient", "name", "mr.", "mrs.", "ms.", "son", "daughter", "spouse"},
		span.TypeDate:       {"dob", "birth", "admitted", "discharged", "date", "seen on"},
		span.TypeAge:        {"age", "years old", "y/o", "yo "},
		span.TypeSSN:        {"ssn", "social security"},
		span.TypeMRN:        {"mrn", "medical record", "chart"},
		span.TypePhone:      {"phone", "tel", "cell", "call", "mobile"},
		span.TypeFax:        {"fax"},
		span.TypeEmail:      {"email", "e-mail", "contact"},
		span.TypeAddress:    {"address", "street", "lives at", "resides"},
		span.TypeZipCode:    {"zip", "postal"},
		span.TypeIP:         {"ip", "host", "address"},
		span.TypeURL:        {"http", "website", "portal"},
		span.TypeAccount:    {"account", "acct", "billing"},
		span.TypeHealthPlan: {"member", "policy", "insurance"},
	}

	// keywords suggesting a false positive regardless of type
	negativeKeywords = []string{"example", "sample", "test", "dummy", "version", "page", "dosage", "mg", "lot number"}
)

// SignalBuilder turns a candidate span and its document into vote signals.
type SignalBuilder struct {
	weights   SignalWeights
	extractor *detector.ContextExtractor
}

// NewSignalBuilder creates a builder with the given weights.
func NewSignalBuilder(w SignalWeights) *SignalBuilder {
	return &SignalBuilder{
		weights:   w,
		extractor: detector.NewContextExtractor(),
	}
}

// Build returns the signals for s within text. analysis may be nil, in which
// case no CHAOS_ADJUSTED signal is produced.
func (b *SignalBuilder) Build(text string, s span.Span, analysis *chaos.Analysis) []Signal {
	signals := []Signal{{
		Source:     SourcePattern,
		Weight:     b.weights.Pattern,
		Confidence: s.Confidence,
		Reason:     fmt.Sprintf("%s matched %s", detectorName(s), s.Type),
	}}

	if c, ok := s.Meta(span.MetaDictionary).(float64); ok {
		signals = append(signals, Signal{
			Source:     SourceDictionary,
			Weight:     b.weights.Dictionary,
			Confidence: c,
			Reason:     "dictionary hit",
		})
	}

	ctx := b.extractor.Extract(text, s.Start, s.End)
	if sig, ok := b.contextSignal(ctx.Lower(), s.Type); ok {
		signals = append(signals, sig)
	}

	prefix := detector.LinePrefix(text, s.Start)
	if m := fieldLabel.FindStringSubmatch(prefix); m != nil {
		c := 0.9
		if analysis != nil && analysis.EnableLabelBoost {
			c = 0.95
		}
		signals = append(signals, Signal{
			Source:     SourceLabel,
			Weight:     b.weights.Label,
			Confidence: c,
			Reason:     fmt.Sprintf("preceded by label %q", strings.TrimSpace(m[0])),
		})
	}

	if reason, ok := structuralPosition(prefix); ok {
		signals = append(signals, Signal{
			Source:     SourceStructure,
			Weight:     b.weights.Structure,
			Confidence: 0.65,
			Reason:     reason,
		})
	}

	if analysis != nil {
		signals = append(signals, Signal{
			Source:     SourceChaosAdjusted,
			Weight:     b.weights.Chaos,
			Confidence: analysis.Adjust(s.Confidence),
			Reason:     fmt.Sprintf("%s text, threshold %.2f", strings.ToLower(analysis.Quality), analysis.RecommendedThreshold),
		})
	}

	return signals
}

func (b *SignalBuilder) contextSignal(window string, typ span.Type) (Signal, bool) {
	pos := 0
	for _, kw := range positiveKeywords[typ] {
		if strings.Contains(window, kw) {
			pos++
		}
	}
	neg := 0
	for _, kw := range negativeKeywords {
		if strings.Contains(window, kw) {
			neg++
		}
	}

	var c float64
	switch {
	case pos == 0 && neg == 0:
		return Signal{}, false
	case neg == 0:
		c = min(0.6+0.1*float64(pos), 0.95)
	case pos == 0:
		c = 0.2
	default:
		c = 0.5
	}
	return Signal{
		Source:     SourceContext,
		Weight:     b.weights.Context,
		Confidence: c,
		Reason:     fmt.Sprintf("%d supporting, %d contrary keywords", pos, neg),
	}, true
}

func structuralPosition(prefix string) (string, bool) {
	trimmed := strings.TrimRight(prefix, " ")
	switch {
	case strings.TrimSpace(prefix) == "":
		return "starts a line", true
	case strings.HasSuffix(trimmed, ":"):
		return "follows a field separator", true
	case strings.HasSuffix(prefix, "\t"):
		return "starts a tab-separated field", true
	}
	return "", false
}

func detectorName(s span.Span) string {
	if s.Detector == "" {
		return "detector"
	}
	return s.Detector
}
