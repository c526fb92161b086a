// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package postfilter drops resolved spans that are known false positives:
// headings, form labels and clinical vocabulary picked up as names, and call
// buttons or room numbers picked up as phone or device identifiers.
package postfilter

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf16"

	"phi-guard/internal/span"
)

// MetaReason is the metadata key recording why a span was removed.
const MetaReason = "postfilter"

// Reason names the rule that removed a span.
type Reason string

const (
	ReasonDevicePhone    Reason = "DevicePhoneFalsePositive"
	ReasonSectionHeading Reason = "SectionHeading"
	ReasonStructureWord  Reason = "StructureWord"
	ReasonShortName      Reason = "ShortName"
	ReasonInvalidPrefix  Reason = "InvalidPrefix"
	ReasonInvalidSuffix  Reason = "InvalidSuffix"
	ReasonNameLineBreak  Reason = "NameLineBreak"
	ReasonMedicalPhrase  Reason = "MedicalPhrase"
	ReasonMedicalSuffix  Reason = "MedicalSuffix"
	ReasonGeographicTerm Reason = "GeographicTerm"
	ReasonFieldLabel     Reason = "FieldLabel"
)

// shortNameConfidence is the confidence below which names under five UTF-16
// code units are dropped
const shortNameConfidence = 0.9

// Filter applies the false-positive rules. It holds no state besides the
// logger and is safe for concurrent use.
type Filter struct {
	logger *slog.Logger
}

// New creates a filter. A nil logger discards.
func New(logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Filter{logger: logger}
}

// Apply splits spans into the ones kept and the ones removed, preserving order.
// Removed spans carry their Reason under MetaReason.
func (f *Filter) Apply(spans []span.Span) (kept, removed []span.Span) {
	for _, s := range spans {
		reason := Check(s)
		if reason == "" {
			kept = append(kept, s)
			continue
		}
		f.logger.Debug("span filtered", "type", s.Type, "start", s.Start, "end", s.End, "reason", reason)
		removed = append(removed, s.WithMetadata(MetaReason, string(reason)))
	}
	return kept, removed
}

// Check returns the rule that rejects s, or "" when s is kept. Name rules
// apply to patient and provider names alike.
func Check(s span.Span) Reason {
	text := s.Text

	switch s.Type {
	case span.TypeDevice, span.TypePhone:
		lower := strings.ToLower(text)
		if strings.Contains(lower, "call button") || strings.Contains(lower, "room:") || strings.Contains(lower, "bed:") {
			return ReasonDevicePhone
		}
		return ""
	case span.TypeName, span.TypeProviderName:
	default:
		return ""
	}

	if allCaps(text) {
		trimmed := strings.TrimSpace(text)
		if sectionHeadings[trimmed] {
			return ReasonSectionHeading
		}
		if words := strings.Fields(trimmed); len(words) == 1 && singleWordHeadings[words[0]] {
			return ReasonSectionHeading
		}
	}

	for _, w := range strings.Fields(strings.ToUpper(text)) {
		if structureWords[w] {
			return ReasonStructureWord
		}
	}

	if utf16Len(text) < 5 && !strings.Contains(text, ",") && s.Confidence < shortNameConfidence {
		return ReasonShortName
	}

	for _, p := range invalidStarts {
		if strings.HasPrefix(text, p) {
			return ReasonInvalidPrefix
		}
	}

	lower := strings.ToLower(text)
	for _, e := range invalidEndings {
		if strings.HasSuffix(lower, e) {
			return ReasonInvalidSuffix
		}
	}

	if brokenByLabel(text) {
		return ReasonNameLineBreak
	}

	if medicalPhrases[lower] {
		return ReasonMedicalPhrase
	}

	for _, suffix := range medicalSuffixes {
		if strings.HasSuffix(text, suffix) {
			return ReasonMedicalSuffix
		}
	}

	for _, w := range strings.Fields(lower) {
		if geoTerms[w] {
			return ReasonGeographicTerm
		}
	}

	if fieldLabels[lower] {
		return ReasonFieldLabel
	}
	return ""
}

// brokenByLabel reports whether the name runs across a line break into the
// next field, such as "John\nDOB" or "Smith\nRoom: 4".
func brokenByLabel(text string) bool {
	if !strings.ContainsAny(text, "\r\n") {
		return false
	}
	normalized := strings.ReplaceAll(strings.ReplaceAll(text, "\r\n", "\n"), "\r", "\n")
	parts := strings.Split(normalized, "\n")
	after := strings.TrimSpace(strings.Join(parts[1:], " "))

	if labelLike(after) {
		return true
	}
	n := utf16Len(after)
	return n > 0 && n <= 24 && strings.Contains(after, ":")
}

func labelLike(s string) bool {
	lower := strings.ToLower(s)
	for _, label := range lineLabels {
		if !strings.HasPrefix(lower, label) {
			continue
		}
		if len(lower) == len(label) {
			return true
		}
		c := lower[len(label)]
		if !(c == '_' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return true
		}
	}
	return false
}

// allCaps reports whether s is non-empty and holds only ASCII capitals and
// whitespace.
func allCaps(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
