// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ensemble

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"phi-guard/internal/detector"
	"phi-guard/internal/span"
)

// MetaDisambiguation records why a span's type was chosen over alternatives.
const MetaDisambiguation = "disambiguation"

// indicators are the contextual cues for each category, matched against the
// lower-cased window around a span.
var indicators = map[span.Type][]*regexp.Regexp{
	span.TypeDate: compileAll(
		`\b(dob|d\.o\.b|date of birth|born)\b`,
		`\b(admitted|admission|discharged?|seen on|visit|dated?)\b`,
		`\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\b`,
		`\b(on|since|until)\s*$`,
	),
	span.TypeAge: compileAll(
		`\b(age|aged|years? old|y/?o|yrs?)\b`,
		`\b(year-old|month-old)\b`,
		`\b(male|female|man|woman|boy|girl)\b`,
	),
	span.TypePhone: compileAll(
		`\b(phone|tel|telephone|cell|mobile|call|contact)\b`,
		`\b(ph|ext)\.?\s*[:#]?\s*$`,
	),
	span.TypeFax: compileAll(
		`\bfax(ed)?\b`,
		`\bfacsimile\b`,
	),
	span.TypeMRN: compileAll(
		`\b(mrn|medical record|record (no|number|#)|chart)\b`,
		`\b(patient id|pt id)\b`,
	),
	span.TypeAccount: compileAll(
		`\b(account|acct|billing|invoice)\b`,
	),
	span.TypeSSN: compileAll(
		`\b(ssn|social security|ss#|soc sec)\b`,
	),
	span.TypeZipCode: compileAll(
		`\b(zip|zipcode|postal)\b`,
		`\b[a-z]{2}\s*$`,
	),
	span.TypeHealthPlan: compileAll(
		`\b(member id|policy|insurance|plan|subscriber|group (no|number|#))\b`,
	),
	span.TypeLicense: compileAll(
		`\b(license|licence|dea|npi|certificate)\b`,
	),
	span.TypeName: compileAll(
		`\b(patient|name|mr|mrs|ms|miss|son|daughter|wife|husband|mother|father)\b`,
		`\b(signed|contact person|guardian)\b`,
	),
	span.TypeProviderName: compileAll(
		`\b(dr|doctor|md|physician|provider|attending|nurse|rn|np|pa-c)\b`,
		`\b(referred by|seen by|signed by)\b`,
	),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Disambiguation is the chosen category for an ambiguous span.
type Disambiguation struct {
	Type       span.Type         `json:"type" yaml:"type"`
	Confidence float64           `json:"confidence" yaml:"confidence"`
	Reason     string            `json:"reason" yaml:"reason"`
	Hits       map[span.Type]int `json:"hits" yaml:"hits"`
}

// Disambiguator picks between competing categories for one span by counting
// contextual indicator matches around it.
type Disambiguator struct {
	extractor *detector.ContextExtractor
	logger    *slog.Logger
}

// NewDisambiguator creates a disambiguator looking window bytes either side of
// the span. A nil logger discards.
func NewDisambiguator(window int, logger *slog.Logger) *Disambiguator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Disambiguator{
		extractor: detector.NewContextExtractor().WithContextChars(window),
		logger:    logger,
	}
}

// Disambiguate chooses among candidates for s, where s.Type is the originally
// proposed category. The candidate with the most indicator hits wins; a tie at
// the top keeps s.Type when it is among the tied, otherwise the earliest tied
// candidate.
func (d *Disambiguator) Disambiguate(text string, s span.Span, candidates []span.Type) Disambiguation {
	if !slices.Contains(candidates, s.Type) {
		candidates = append([]span.Type{s.Type}, candidates...)
	}

	window := d.extractor.Extract(text, s.Start, s.End).Lower()
	hits := make(map[span.Type]int, len(candidates))
	for _, t := range candidates {
		for _, re := range indicators[t] {
			hits[t] += len(re.FindAllStringIndex(window, -1))
		}
	}

	best, second := s.Type, -1
	for _, t := range candidates {
		if t == best {
			continue
		}
		switch {
		case hits[t] > hits[best]:
			second = hits[best]
			best = t
		case hits[t] > second:
			second = hits[t]
		}
	}
	second = max(second, 0)

	result := Disambiguation{Type: best, Hits: hits, Confidence: 0.5}
	if total := hits[best] + second; total > 0 {
		result.Confidence = 0.5 + 0.5*float64(hits[best]-second)/float64(total)
	}

	switch {
	case hits[best] == second:
		result.Reason = fmt.Sprintf("tie at %d indicator hits; keeping %s", hits[best], best)
	default:
		result.Reason = fmt.Sprintf("%s has %d indicator hits against %d (%s)", best, hits[best], second, describeHits(hits, candidates))
	}

	d.logger.Debug("disambiguated span",
		"original", s.Type,
		"chosen", result.Type,
		"confidence", result.Confidence)

	return result
}

// ResolveGroup collapses spans that cover the same range with different types
// into the single best span of the chosen type. The group's first span, the
// strongest claim, supplies the original type.
func (d *Disambiguator) ResolveGroup(text string, group []span.Span) span.Span {
	if len(group) == 1 {
		return group[0]
	}
	var candidates []span.Type
	for _, s := range group {
		if !slices.Contains(candidates, s.Type) {
			candidates = append(candidates, s.Type)
		}
	}

	result := d.Disambiguate(text, group[0], candidates)
	for _, s := range group {
		if s.Type == result.Type {
			return s.WithMetadata(MetaDisambiguation, result.Reason)
		}
	}
	return group[0]
}

func describeHits(hits map[span.Type]int, order []span.Type) string {
	parts := make([]string, 0, len(order))
	for _, t := range order {
		parts = append(parts, fmt.Sprintf("%s=%d", t, hits[t]))
	}
	return strings.Join(parts, " ")
}
