// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package evaluation

import (
	"math/rand/v2"
	"testing"

	"phi-guard/internal/span"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ent(start, end int, typ span.Type) Entity {
	return Entity{Start: start, End: end, Type: typ}
}

func TestAlignExactMatch(t *testing.T) {
	res, err := NewAligner(0, nil).Align(
		[]Entity{ent(0, 4, span.TypeName)},
		[]Entity{ent(0, 4, span.TypeName)},
	)
	require.NoError(t, err)

	assert.Equal(t, ModeResults{TP: 1}, res.Strict)
	for _, mode := range Modes {
		m, ok := res.Mode(mode)
		require.True(t, ok)
		assert.Equal(t, ModeResults{TP: 1}, m, mode)
	}
	require.Len(t, res.Alignments, 1)
	assert.Equal(t, MatchExact, res.Alignments[0].MatchType)
	assert.Equal(t, 1.0, res.Alignments[0].OverlapRatio)
}

func TestAlignPartialThreshold(t *testing.T) {
	preds := []Entity{ent(0, 4, span.TypeName)}
	gts := []Entity{ent(0, 10, span.TypeName)}

	res, err := NewAligner(0.5, nil).Align(preds, gts)
	require.NoError(t, err)
	al := res.Alignments[0]
	assert.Equal(t, MatchPartial, al.MatchType)
	assert.Equal(t, 4, al.OverlapChars)
	assert.InDelta(t, 0.4, al.OverlapRatio, 1e-12)
	assert.Equal(t, ModeResults{Partial: 1}, res.Partial, "0.4 is below the 0.5 threshold")
	assert.Equal(t, ModeResults{TP: 1}, res.EntType, "ent_type needs only overlap and a matching type")
	assert.Equal(t, ModeResults{FP: 1, FN: 1}, res.Strict)
	assert.Equal(t, ModeResults{FP: 1, FN: 1}, res.Exact)
	assert.Equal(t, ModeResults{TP: 1}, res.Type)

	res, err = NewAligner(0.3, nil).Align(preds, gts)
	require.NoError(t, err)
	assert.Equal(t, ModeResults{TP: 1}, res.Partial)
	assert.Equal(t, ModeResults{TP: 1}, res.EntType)
}

// A type mismatch on identical boundaries is an exact-mode true positive.
func TestAlignTypeMismatchCountsAsExact(t *testing.T) {
	res, err := NewAligner(0, nil).Align(
		[]Entity{ent(5, 15, span.TypeDate)},
		[]Entity{ent(5, 15, span.TypeAge)},
	)
	require.NoError(t, err)

	require.Len(t, res.Alignments, 1)
	assert.Equal(t, MatchTypeMismatch, res.Alignments[0].MatchType)
	assert.False(t, res.Alignments[0].TypeMatches)

	assert.Equal(t, ModeResults{FP: 1, FN: 1}, res.Strict)
	assert.Equal(t, ModeResults{TP: 1}, res.Exact)
	assert.Equal(t, ModeResults{TP: 1}, res.Partial)
	assert.Equal(t, ModeResults{FP: 1, FN: 1}, res.Type)
	assert.Equal(t, ModeResults{FP: 1, FN: 1}, res.EntType)
}

func TestAlignPicksHighestOverlapRatio(t *testing.T) {
	res, err := NewAligner(0, nil).Align(
		[]Entity{ent(0, 10, span.TypeName)},
		[]Entity{ent(0, 3, span.TypeName), ent(2, 10, span.TypeName)},
	)
	require.NoError(t, err)

	require.Len(t, res.Alignments, 2)
	matched := res.Alignments[0]
	require.True(t, matched.Matched())
	assert.Equal(t, 2, matched.GroundTruth.Start, "the first overlapping item is not necessarily the best")
	assert.Equal(t, MatchMissing, res.Alignments[1].MatchType)
	assert.Equal(t, 0, res.Alignments[1].GroundTruth.Start)
}

func TestAlignSpuriousAndMissing(t *testing.T) {
	res, err := NewAligner(0, nil).Align(
		[]Entity{ent(0, 4, span.TypeName), ent(20, 25, span.TypePhone)},
		[]Entity{ent(0, 4, span.TypeName), ent(40, 50, span.TypeDate)},
	)
	require.NoError(t, err)

	for _, mode := range Modes {
		m, _ := res.Mode(mode)
		assert.Equal(t, ModeResults{TP: 1, FP: 1, FN: 1}, m, mode)
	}
	c := res.Counts()
	assert.Equal(t, Counts{Predictions: 2, GroundTruth: 2, Matched: 1, Spurious: 1, Missing: 1}, c)
}

func TestAlignOneToOne(t *testing.T) {
	res, err := NewAligner(0, nil).Align(
		[]Entity{ent(0, 10, span.TypeName), ent(0, 10, span.TypeName)},
		[]Entity{ent(0, 10, span.TypeName)},
	)
	require.NoError(t, err)
	assert.Equal(t, ModeResults{TP: 1, FP: 1}, res.Strict, "a ground truth item matches at most one prediction")
}

func TestAlignAliases(t *testing.T) {
	a := NewAligner(0, map[string]string{"patient full name": "name"})

	res, err := a.Align(
		[]Entity{ent(0, 8, "DOB"), ent(10, 20, "patient-full-name")},
		[]Entity{ent(0, 8, span.TypeDate), ent(10, 20, span.TypeName)},
	)
	require.NoError(t, err)
	assert.Equal(t, ModeResults{TP: 2}, res.Strict)
	assert.Equal(t, span.TypeDate, a.Canonical("dob"))
	assert.Equal(t, span.Type("UNKNOWN_THING"), a.Canonical("unknown thing"))
}

func TestAlignRejectsMalformed(t *testing.T) {
	a := NewAligner(0, nil)
	_, err := a.Align([]Entity{ent(4, 4, span.TypeName)}, nil)
	assert.ErrorIs(t, err, ErrMalformedSpan)
	_, err = a.Align(nil, []Entity{ent(-1, 3, span.TypeName)})
	assert.ErrorIs(t, err, ErrMalformedSpan)

	res, err := a.Align(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Alignments)
}

func TestAlignExhaustiveness(t *testing.T) {
	rng := rand.New(rand.NewPCG(2024, 1))
	types := []span.Type{span.TypeName, span.TypeDate, span.TypeSSN}
	random := func(n int) []Entity {
		out := make([]Entity, n)
		for i := range out {
			start := rng.IntN(200)
			out[i] = ent(start, start+1+rng.IntN(15), types[rng.IntN(len(types))])
		}
		return out
	}

	for _, th := range []float64{0.1, 0.5, 0.9} {
		a := NewAligner(th, nil)
		for trial := 0; trial < 300; trial++ {
			preds, gts := random(rng.IntN(12)), random(rng.IntN(12))
			res, err := a.Align(preds, gts)
			require.NoError(t, err)

			c := res.Counts()
			require.Equal(t, len(preds)+len(gts)-c.Matched, len(res.Alignments))
			require.Equal(t, len(preds), c.Predictions)
			require.Equal(t, len(gts), c.GroundTruth)

			for _, mode := range Modes {
				m, _ := res.Mode(mode)
				require.Equal(t, len(preds), m.TP+m.Partial+m.FP, "%s: every prediction is accounted for", mode)
				require.Equal(t, len(gts), m.TP+m.Partial+m.FN, "%s: every ground truth item is accounted for", mode)
			}
		}
	}
}

func TestVerifyDetectsImbalance(t *testing.T) {
	p := ent(0, 4, span.TypeName)
	r := Results{Alignments: []Alignment{{Prediction: &p, MatchType: MatchSpurious}}}
	assert.ErrorIs(t, verify(&r, 2, 0), ErrAlignmentImbalance)

	r.Strict.FP = 1
	r.Exact.FP = 1
	r.Partial.FP = 1
	r.Type.FP = 1
	assert.ErrorIs(t, verify(&r, 1, 0), ErrAlignmentImbalance, "ent_type never counted the spurious prediction")
}

func TestAlignByTypeAndAggregate(t *testing.T) {
	a := NewAligner(0, nil)
	preds := []Entity{ent(0, 4, span.TypeName), ent(10, 20, span.TypeDate), ent(30, 35, "ZIP")}
	gts := []Entity{ent(0, 4, span.TypeName), ent(10, 20, span.TypeAge), ent(30, 35, span.TypeZipCode)}

	byType, err := a.AlignByType(preds, gts)
	require.NoError(t, err)
	require.Len(t, byType, 4)
	assert.Equal(t, ModeResults{TP: 1}, byType[span.TypeName].Strict)
	assert.Equal(t, ModeResults{TP: 1}, byType[span.TypeZipCode].Strict)
	assert.Equal(t, ModeResults{FP: 1}, byType[span.TypeDate].Strict, "per-type runs never cross types")
	assert.Equal(t, ModeResults{FN: 1}, byType[span.TypeAge].Strict)

	doc1, err := a.Align(preds, gts)
	require.NoError(t, err)
	doc2, err := a.Align(preds[:1], nil)
	require.NoError(t, err)

	total := Aggregate(doc1, doc2)
	assert.Equal(t, ModeResults{TP: 2, FP: 2, FN: 1}, total.Strict)
	assert.Len(t, total.Alignments, len(doc1.Alignments)+len(doc2.Alignments))

	merged := AggregateByType(byType, map[span.Type]Results{span.TypeName: doc2})
	assert.Equal(t, ModeResults{TP: 1, FP: 1}, merged[span.TypeName].Strict)
}
