// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package redactors rewrites document text so that spans decided as PHI no
// longer appear in it.
package redactors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"phi-guard/internal/span"
)

// ErrOverlappingSpans is returned when spans handed to Apply overlap.
var ErrOverlappingSpans = errors.New("overlapping redaction spans")

// Style defines how a redacted span is replaced
type Style int

const (
	// StyleBrackets replaces the span with its type, e.g. [SSN]
	StyleBrackets Style = iota
	// StyleAsterisks replaces each rune with '*'
	StyleAsterisks
	// StyleEmpty removes the span
	StyleEmpty
	// StylePreserve masks letters and digits but keeps separators, so
	// 123-45-6789 becomes XXX-XX-XXXX
	StylePreserve
)

// String returns the string representation of the style
func (s Style) String() string {
	switch s {
	case StyleBrackets:
		return "brackets"
	case StyleAsterisks:
		return "asterisks"
	case StyleEmpty:
		return "empty"
	case StylePreserve:
		return "preserve"
	default:
		return "unknown"
	}
}

// ParseStyle converts a style name to a Style.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "brackets", "":
		return StyleBrackets, nil
	case "asterisks":
		return StyleAsterisks, nil
	case "empty":
		return StyleEmpty, nil
	case "preserve", "format_preserving":
		return StylePreserve, nil
	default:
		return StyleBrackets, fmt.Errorf("unknown redaction style %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Style) UnmarshalText(b []byte) error {
	parsed, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Policy selects the replacement style, optionally per PHI type.
type Policy struct {
	Style   Style
	PerType map[span.Type]Style
}

// StyleFor returns the style used for spans of typ.
func (p Policy) StyleFor(typ span.Type) Style {
	if s, ok := p.PerType[typ]; ok {
		return s
	}
	return p.Style
}

// Replacement returns the text that stands in for s.
func (p Policy) Replacement(s span.Span) string {
	switch p.StyleFor(s.Type) {
	case StyleAsterisks:
		return strings.Repeat("*", utf8.RuneCountInString(s.Text))
	case StyleEmpty:
		return ""
	case StylePreserve:
		return strings.Map(func(r rune) rune {
			switch {
			case unicode.IsDigit(r), unicode.IsLetter(r):
				return 'X'
			default:
				return r
			}
		}, s.Text)
	default:
		return "[" + string(s.Type) + "]"
	}
}

// Mapping records one replacement. Offsets refer to the original text.
type Mapping struct {
	Start       int       `json:"start" yaml:"start"`
	End         int       `json:"end" yaml:"end"`
	Type        span.Type `json:"type" yaml:"type"`
	Replacement string    `json:"replacement" yaml:"replacement"`
}

// Result is the redacted text and what was replaced.
type Result struct {
	Text     string    `json:"text" yaml:"text"`
	Mappings []Mapping `json:"mappings" yaml:"mappings"`
}

// Apply replaces every span in text according to the policy. Spans may come in
// any order but must be in bounds and must not overlap. Replacement runs from
// the end of the document backwards so earlier offsets stay valid.
func (p Policy) Apply(text string, spans []span.Span) (*Result, error) {
	ordered := make([]span.Span, len(spans))
	copy(ordered, spans)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Start > ordered[j].Start
	})

	for i, s := range ordered {
		if err := s.Validate(len(text)); err != nil {
			return nil, fmt.Errorf("apply redaction: %w", err)
		}
		if i > 0 && s.End > ordered[i-1].Start {
			return nil, fmt.Errorf("%w: %s and %s", ErrOverlappingSpans, s, ordered[i-1])
		}
	}

	out := text
	mappings := make([]Mapping, len(ordered))
	for i, s := range ordered {
		repl := p.Replacement(s)
		out = out[:s.Start] + repl + out[s.End:]
		mappings[len(ordered)-1-i] = Mapping{Start: s.Start, End: s.End, Type: s.Type, Replacement: repl}
	}

	return &Result{Text: out, Mappings: mappings}, nil
}
