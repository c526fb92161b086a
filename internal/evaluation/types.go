// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package evaluation

import (
	"errors"

	"phi-guard/internal/span"
)

var (
	// ErrAlignmentImbalance means an input item was not accounted for exactly
	// once. It indicates a defect in the aligner, never bad input.
	ErrAlignmentImbalance = errors.New("alignment imbalance")

	// ErrMalformedSpan is returned for predictions or annotations with invalid
	// offsets.
	ErrMalformedSpan = errors.New("malformed evaluation span")
)

// Entity is a typed range used on either side of an evaluation. Ground truth
// annotations and detected spans share this shape.
type Entity struct {
	Start int       `json:"start" yaml:"start"`
	End   int       `json:"end" yaml:"end"`
	Type  span.Type `json:"type" yaml:"type"`
	Text  string    `json:"text,omitempty" yaml:"text,omitempty"`
}

// FromSpans converts detected spans into evaluation entities.
func FromSpans(spans []span.Span) []Entity {
	out := make([]Entity, len(spans))
	for i, s := range spans {
		out[i] = Entity{Start: s.Start, End: s.End, Type: s.Type, Text: s.Text}
	}
	return out
}

// MatchType classifies one alignment.
type MatchType string

const (
	MatchExact        MatchType = "exact"
	MatchPartial      MatchType = "partial"
	MatchMissing      MatchType = "missing"
	MatchSpurious     MatchType = "spurious"
	MatchTypeMismatch MatchType = "type_mismatch"
)

// Alignment pairs a prediction with a ground truth item, or records either side
// alone.
type Alignment struct {
	Prediction   *Entity   `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	GroundTruth  *Entity   `json:"ground_truth,omitempty" yaml:"ground_truth,omitempty"`
	MatchType    MatchType `json:"match_type" yaml:"match_type"`
	OverlapChars int       `json:"overlap_chars" yaml:"overlap_chars"`
	OverlapRatio float64   `json:"overlap_ratio" yaml:"overlap_ratio"`
	TypeMatches  bool      `json:"type_matches" yaml:"type_matches"`
}

// Matched reports whether both sides are present.
func (a Alignment) Matched() bool {
	return a.Prediction != nil && a.GroundTruth != nil
}

// Mode names
const (
	ModeStrict  = "strict"
	ModeExact   = "exact"
	ModePartial = "partial"
	ModeType    = "type"
	ModeEntType = "ent_type"
)

// Modes lists the evaluation modes in reporting order.
var Modes = []string{ModeStrict, ModeExact, ModePartial, ModeType, ModeEntType}

// ModeResults are the counters for one mode.
type ModeResults struct {
	TP      int `json:"tp" yaml:"tp"`
	FP      int `json:"fp" yaml:"fp"`
	FN      int `json:"fn" yaml:"fn"`
	Partial int `json:"partial" yaml:"partial"`
}

func (m *ModeResults) add(o ModeResults) {
	m.TP += o.TP
	m.FP += o.FP
	m.FN += o.FN
	m.Partial += o.Partial
}

// Results are the counters for all five modes plus the alignments behind them.
type Results struct {
	Strict     ModeResults `json:"strict" yaml:"strict"`
	Exact      ModeResults `json:"exact" yaml:"exact"`
	Partial    ModeResults `json:"partial" yaml:"partial"`
	Type       ModeResults `json:"type" yaml:"type"`
	EntType    ModeResults `json:"ent_type" yaml:"ent_type"`
	Alignments []Alignment `json:"alignments" yaml:"alignments"`
}

// Mode returns the counters for a mode name.
func (r *Results) Mode(name string) (ModeResults, bool) {
	switch name {
	case ModeStrict:
		return r.Strict, true
	case ModeExact:
		return r.Exact, true
	case ModePartial:
		return r.Partial, true
	case ModeType:
		return r.Type, true
	case ModeEntType:
		return r.EntType, true
	}
	return ModeResults{}, false
}

func (r *Results) modes() []*ModeResults {
	return []*ModeResults{&r.Strict, &r.Exact, &r.Partial, &r.Type, &r.EntType}
}

// Counts summarizes the alignment list.
type Counts struct {
	Predictions int `json:"predictions" yaml:"predictions"`
	GroundTruth int `json:"ground_truth" yaml:"ground_truth"`
	Matched     int `json:"matched" yaml:"matched"`
	Spurious    int `json:"spurious" yaml:"spurious"`
	Missing     int `json:"missing" yaml:"missing"`
}

// Counts tallies the alignment list by kind.
func (r *Results) Counts() Counts {
	var c Counts
	for _, a := range r.Alignments {
		switch {
		case a.Matched():
			c.Matched++
			c.Predictions++
			c.GroundTruth++
		case a.Prediction != nil:
			c.Spurious++
			c.Predictions++
		case a.GroundTruth != nil:
			c.Missing++
			c.GroundTruth++
		}
	}
	return c
}
