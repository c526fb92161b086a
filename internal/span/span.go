// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package span defines the canonical unit of detected PHI evidence: a labeled,
// confidence-scored byte range within a document.
package span

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"
)

// ErrMalformedSpan is returned when a span has invalid offsets, lies outside the
// document, or does not match the source text.
var ErrMalformedSpan = errors.New("malformed span")

// Type is a Safe Harbor PHI category.
type Type string

// Supported PHI categories
const (
	TypeName         Type = "NAME"
	TypeProviderName Type = "PROVIDER_NAME"
	TypeDate         Type = "DATE"
	TypeAge          Type = "AGE"
	TypeSSN          Type = "SSN"
	TypeMRN          Type = "MRN"
	TypePhone        Type = "PHONE"
	TypeFax          Type = "FAX"
	TypeEmail        Type = "EMAIL"
	TypeAddress      Type = "ADDRESS"
	TypeZipCode      Type = "ZIPCODE"
	TypeCity         Type = "CITY"
	TypeState        Type = "STATE"
	TypeIP           Type = "IP"
	TypeURL          Type = "URL"
	TypeAccount      Type = "ACCOUNT"
	TypeLicense      Type = "LICENSE"
	TypeHealthPlan   Type = "HEALTH_PLAN"
	TypeVehicle      Type = "VEHICLE"
	TypeDevice       Type = "DEVICE"
	TypeBiometric    Type = "BIOMETRIC"
	TypeCreditCard   Type = "CREDIT_CARD"
	TypeCustom       Type = "CUSTOM"
)

// Metadata keys set by detectors and read by evidence scoring.
const (
	// MetaDictionary marks a span confirmed by a dictionary lookup; the value
	// is the lookup confidence as float64.
	MetaDictionary = "dictionary"
	// MetaLabel holds the field label found right before the span.
	MetaLabel = "label"
)

// Span is an immutable detection result. Functions that "change" a span return a
// new value; the Metadata map is copied so that values never share it.
type Span struct {
	Start      int            `json:"start" yaml:"start"`
	End        int            `json:"end" yaml:"end"`
	Text       string         `json:"text" yaml:"text"`
	Type       Type           `json:"type" yaml:"type"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Detector   string         `json:"detector,omitempty" yaml:"detector,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// New creates a span over source[start:end], validating the offsets first.
func New(source string, start, end int, typ Type, confidence float64) (Span, error) {
	if err := checkOffsets(start, end, len(source)); err != nil {
		return Span{}, err
	}
	if err := checkConfidence(confidence); err != nil {
		return Span{}, err
	}
	return Span{
		Start:      start,
		End:        end,
		Text:       source[start:end],
		Type:       typ,
		Confidence: confidence,
	}, nil
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether the half-open ranges [Start,End) intersect.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool {
	return s.Start <= o.Start && s.End >= o.End
}

// SameRange reports whether both spans cover exactly the same bytes.
func (s Span) SameRange(o Span) bool {
	return s.Start == o.Start && s.End == o.End
}

// Clone returns a copy with its own Metadata map.
func (s Span) Clone() Span {
	if s.Metadata != nil {
		s.Metadata = maps.Clone(s.Metadata)
	}
	return s
}

// WithType returns a copy of the span relabeled as typ.
func (s Span) WithType(typ Type) Span {
	c := s.Clone()
	c.Type = typ
	return c
}

// WithDetector returns a copy attributed to the named detector.
func (s Span) WithDetector(name string) Span {
	c := s.Clone()
	c.Detector = name
	return c
}

// WithMetadata returns a copy with key set to value.
func (s Span) WithMetadata(key string, value any) Span {
	c := s.Clone()
	if c.Metadata == nil {
		c.Metadata = make(map[string]any, 1)
	}
	c.Metadata[key] = value
	return c
}

// Meta returns a metadata value or nil.
func (s Span) Meta(key string) any {
	if s.Metadata == nil {
		return nil
	}
	return s.Metadata[key]
}

// Validate checks the structural invariants of the span. A negative docLen skips
// the document bounds check.
func (s Span) Validate(docLen int) error {
	if docLen < 0 {
		docLen = math.MaxInt
	}
	if err := checkOffsets(s.Start, s.End, docLen); err != nil {
		return err
	}
	if len(s.Text) != s.End-s.Start {
		return fmt.Errorf("%w: text length %d does not match range [%d,%d)", ErrMalformedSpan, len(s.Text), s.Start, s.End)
	}
	return checkConfidence(s.Confidence)
}

// ValidateAgainst checks the span against the document it was detected in,
// including the text == source[start:end] invariant.
func (s Span) ValidateAgainst(source string) error {
	if err := s.Validate(len(source)); err != nil {
		return err
	}
	if source[s.Start:s.End] != s.Text {
		return fmt.Errorf("%w: text %q does not match source at [%d,%d)", ErrMalformedSpan, s.Text, s.Start, s.End)
	}
	return nil
}

// String renders the span for logs without the matched text.
func (s Span) String() string {
	return fmt.Sprintf("%s[%d,%d)@%.2f", s.Type, s.Start, s.End, s.Confidence)
}

func checkOffsets(start, end, docLen int) error {
	if start < 0 {
		return fmt.Errorf("%w: negative start %d", ErrMalformedSpan, start)
	}
	if end <= start {
		return fmt.Errorf("%w: end %d must be greater than start %d", ErrMalformedSpan, end, start)
	}
	if end > docLen {
		return fmt.Errorf("%w: end %d exceeds document length %d", ErrMalformedSpan, end, docLen)
	}
	return nil
}

func checkConfidence(c float64) error {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedSpan, c)
	}
	return nil
}

// NormalizeType upper-cases and trims a free-form type label.
func NormalizeType(label string) Type {
	t := strings.ToUpper(strings.TrimSpace(label))
	t = strings.NewReplacer("-", "_", " ", "_").Replace(t)
	return Type(t)
}

// AllTypes returns every built-in category.
func AllTypes() []Type {
	return []Type{
		TypeName, TypeProviderName, TypeDate, TypeAge, TypeSSN, TypeMRN, TypePhone, TypeFax,
		TypeEmail, TypeAddress, TypeZipCode, TypeCity, TypeState, TypeIP, TypeURL, TypeAccount,
		TypeLicense, TypeHealthPlan, TypeVehicle, TypeDevice, TypeBiometric, TypeCreditCard, TypeCustom,
	}
}
