// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package ensemble

import (
	"strings"
	"testing"

	"phi-guard/internal/chaos"
	"phi-guard/internal/span"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spanOf(t *testing.T, text, needle string, typ span.Type, conf float64) span.Span {
	t.Helper()
	i := strings.Index(text, needle)
	require.GreaterOrEqual(t, i, 0, "%q not in %q", needle, text)
	s, err := span.New(text, i, i+len(needle), typ, conf)
	require.NoError(t, err)
	return s
}

func TestDisambiguate(t *testing.T) {
	d := NewDisambiguator(50, nil)
	candidates := []span.Type{span.TypeDate, span.TypeAge}

	tests := []struct {
		name     string
		text     string
		original span.Type
		want     span.Type
		conf     float64
	}{
		{"date cue", "DOB 03/14 on file", span.TypeAge, span.TypeDate, 1.0},
		{"age cues", "Patient aged 12/5 yrs", span.TypeDate, span.TypeAge, 1.0},
		{"no cues keeps original", "value 12/5 here", span.TypeDate, span.TypeDate, 0.5},
		{"no cues keeps original age", "value 12/5 here", span.TypeAge, span.TypeAge, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			needle := "03/14"
			if !strings.Contains(tt.text, needle) {
				needle = "12/5"
			}
			s := spanOf(t, tt.text, needle, tt.original, 0.6)
			got := d.Disambiguate(tt.text, s, candidates)
			assert.Equal(t, tt.want, got.Type)
			assert.InDelta(t, tt.conf, got.Confidence, 1e-9)
			assert.NotEmpty(t, got.Reason)
		})
	}
}

func TestDisambiguateTieBetweenCues(t *testing.T) {
	text := "DOB 4/5 age"
	s := spanOf(t, text, "4/5", span.TypeAge, 0.6)
	got := NewDisambiguator(50, nil).Disambiguate(text, s, []span.Type{span.TypeDate, span.TypeAge})
	assert.Equal(t, span.TypeAge, got.Type, "equal hits fall back to the proposed type")
	assert.Equal(t, 1, got.Hits[span.TypeDate])
	assert.Equal(t, 1, got.Hits[span.TypeAge])
	assert.Contains(t, got.Reason, "tie")
}

func TestResolveGroup(t *testing.T) {
	text := "Patient aged 12/5 yrs"
	group := []span.Span{
		spanOf(t, text, "12/5", span.TypeDate, 0.6).WithDetector("dates"),
		spanOf(t, text, "12/5", span.TypeAge, 0.6).WithDetector("ages"),
	}
	got := NewDisambiguator(50, nil).ResolveGroup(text, group)
	assert.Equal(t, span.TypeAge, got.Type)
	assert.Equal(t, "ages", got.Detector)
	assert.NotNil(t, got.Meta(MetaDisambiguation))
	assert.Nil(t, group[1].Meta(MetaDisambiguation))
}

func TestSignalBuilder(t *testing.T) {
	text := "Patient Name: John Smith\nSSN: 123-45-6789"
	s := spanOf(t, text, "John Smith", span.TypeName, 0.9).
		WithDetector("names").
		WithMetadata(span.MetaDictionary, 0.9)
	analysis := chaos.NewAnalyzer(4).Analyze(text)

	signals := NewSignalBuilder(DefaultSignalWeights()).Build(text, s, &analysis)
	sources := map[Source]Signal{}
	for _, sig := range signals {
		sources[sig.Source] = sig
	}

	assert.Equal(t, 0.9, sources[SourcePattern].Confidence)
	assert.Contains(t, sources[SourcePattern].Reason, "names")
	assert.Equal(t, 0.9, sources[SourceDictionary].Confidence)
	assert.Greater(t, sources[SourceContext].Confidence, 0.6)
	assert.Contains(t, sources[SourceLabel].Reason, "Patient Name:")
	assert.Equal(t, "follows a field separator", sources[SourceStructure].Reason)
	assert.Contains(t, sources, SourceChaosAdjusted)

	vote := newVoter(t, nil).Vote(signals)
	assert.Equal(t, Redact, vote.Recommendation)
}

func TestSignalBuilderBareMention(t *testing.T) {
	text := "we discussed John today"
	s := spanOf(t, text, "John", span.TypeName, 0.5)

	signals := NewSignalBuilder(DefaultSignalWeights()).Build(text, s, nil)
	require.Len(t, signals, 1)
	assert.Equal(t, SourcePattern, signals[0].Source)
}

func TestSignalBuilderNegativeContext(t *testing.T) {
	text := "sample record 555-0100 for testing"
	s := spanOf(t, text, "555-0100", span.TypePhone, 0.6)

	signals := NewSignalBuilder(DefaultSignalWeights()).Build(text, s, nil)
	var ctx *Signal
	for i := range signals {
		if signals[i].Source == SourceContext {
			ctx = &signals[i]
		}
	}
	require.NotNil(t, ctx)
	assert.Equal(t, 0.2, ctx.Confidence)
}
