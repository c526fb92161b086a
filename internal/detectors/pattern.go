// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package detectors holds the built-in PHI detectors. Each detector is
// stateless; compiled patterns and dictionaries are shared read-only.
package detectors

import (
	"context"
	"regexp"
	"strings"

	"phi-guard/internal/detector"
	"phi-guard/internal/span"
)

// valueGroup prefixes the capture groups that, when present, mark the PHI part
// of a larger match (for example the number after "MRN:"). Alternatives use
// v, v2 and so on; the first group that participated wins.
const valueGroup = "v"

// Pattern is a regex detector with optional validation and keyword-based
// confidence adjustment.
type Pattern struct {
	name           string
	typ            span.Type
	regex          *regexp.Regexp
	groups         []int
	baseConfidence float64

	// Rejects matches that fit the pattern but cannot be valid
	validate func(value string) bool

	// Adjusts the base confidence for a specific value, e.g. test numbers
	score func(value string, base float64) float64

	// Keywords that suggest or contradict this category near a match
	positiveKeywords []string
	negativeKeywords []string

	// Matches without any positive keyword nearby are dropped
	requireContext bool

	// Only the text before a match is searched for keywords
	keywordsBefore bool

	extractor *detector.ContextExtractor
}

// Name returns the detector name
func (p *Pattern) Name() string {
	return p.name
}

// Type returns the category this detector reports
func (p *Pattern) Type() span.Type {
	return p.typ
}

// Detect finds every valid match in text
func (p *Pattern) Detect(ctx context.Context, text string) ([]span.Span, error) {
	var spans []span.Span

	for i, loc := range p.regex.FindAllStringSubmatchIndex(text, -1) {
		if i%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		start, end := loc[0], loc[1]
		for _, g := range p.groups {
			if loc[2*g] >= 0 {
				start, end = loc[2*g], loc[2*g+1]
				break
			}
		}
		value := text[start:end]
		if p.validate != nil && !p.validate(value) {
			continue
		}

		confidence := p.baseConfidence
		if p.score != nil {
			confidence = p.score(value, confidence)
		}

		pos, neg := p.keywordHits(text, start, end)
		if p.requireContext && pos == 0 {
			continue
		}
		confidence += 0.05 * float64(min(pos, 4))
		if neg > 0 {
			confidence -= 0.15
		}
		confidence = max(0.05, min(confidence, 0.99))

		s, err := span.New(text, start, end, p.typ, confidence)
		if err != nil {
			return nil, err
		}
		spans = append(spans, s.WithDetector(p.name))
	}
	return spans, nil
}

func (p *Pattern) keywordHits(text string, start, end int) (pos, neg int) {
	if len(p.positiveKeywords) == 0 && len(p.negativeKeywords) == 0 {
		return 0, 0
	}
	info := p.extractor.Extract(text, start, end)
	window := info.Lower()
	if p.keywordsBefore {
		window = strings.ToLower(info.BeforeText)
	}
	for _, kw := range p.positiveKeywords {
		if strings.Contains(window, kw) {
			pos++
		}
	}
	for _, kw := range p.negativeKeywords {
		if strings.Contains(window, kw) {
			neg++
		}
	}
	return pos, neg
}

func newPattern(name string, typ span.Type, pattern string, base float64) *Pattern {
	re := regexp.MustCompile(pattern)
	var groups []int
	for i, n := range re.SubexpNames() {
		if i > 0 && strings.HasPrefix(n, valueGroup) {
			groups = append(groups, i)
		}
	}
	return &Pattern{
		name:           name,
		typ:            typ,
		regex:          re,
		groups:         groups,
		baseConfidence: base,
		extractor:      detector.NewContextExtractor().WithContextChars(40),
	}
}

// commonNegatives appear near numbers that look like PHI but are not
var commonNegatives = []string{"example", "sample", "test", "dummy", "placeholder", "version", "serial", "lot "}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func allSameDigit(d string) bool {
	return d != "" && strings.Count(d, d[:1]) == len(d)
}
