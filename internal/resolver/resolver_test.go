// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"phi-guard/internal/span"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var doc = strings.Repeat("abcdefghij", 10)

func mk(start, end int, typ span.Type, conf float64, detector string) span.Span {
	return span.Span{Start: start, End: end, Text: doc[start:end], Type: typ, Confidence: conf, Detector: detector}
}

func ranges(spans []span.Span) [][2]int {
	out := make([][2]int, len(spans))
	for i, s := range spans {
		out[i] = [2]int{s.Start, s.End}
	}
	return out
}

func TestResolveDominance(t *testing.T) {
	a := mk(0, 10, span.TypeName, 0.9, "names")
	b := mk(5, 15, span.TypeDate, 0.5, "dates")

	got, err := New(nil).Resolve([]span.Span{b, a})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, span.TypeName, got[0].Type)
	assert.Equal(t, [2]int{0, 10}, [2]int{got[0].Start, got[0].End})
}

func TestResolveTieBreaks(t *testing.T) {
	r := New(nil)

	// equal confidence: the containing span wins
	outer := mk(10, 30, span.TypeAddress, 0.7, "address")
	inner := mk(15, 20, span.TypeZipCode, 0.7, "zip")
	got, err := r.Resolve([]span.Span{inner, outer})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{10, 30}}, ranges(got))

	// equal confidence, partial overlap: the earlier start wins
	left := mk(40, 50, span.TypeName, 0.6, "a")
	right := mk(45, 60, span.TypeName, 0.6, "b")
	got, err = r.Resolve([]span.Span{right, left})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{40, 50}}, ranges(got))

	// confidence beats containment
	weakOuter := mk(0, 20, span.TypeAddress, 0.4, "address")
	strongInner := mk(5, 9, span.TypeSSN, 0.95, "ssn")
	got, err = r.Resolve([]span.Span{weakOuter, strongInner})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{5, 9}}, ranges(got))
}

func TestResolveKeepsDisjointAndAdjacent(t *testing.T) {
	in := []span.Span{
		mk(20, 25, span.TypeDate, 0.5, "d"),
		mk(0, 10, span.TypeName, 0.8, "n"),
		mk(10, 20, span.TypePhone, 0.6, "p"),
	}
	got, err := New(nil).Resolve(in)
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 10}, {10, 20}, {20, 25}}, ranges(got), "touching spans do not conflict")
}

func TestResolveSupportCountsDuplicates(t *testing.T) {
	in := []span.Span{
		mk(0, 4, span.TypeName, 0.8, "dictionary"),
		mk(0, 4, span.TypeName, 0.8, "label"),
		mk(0, 4, span.TypeName, 0.6, "context"),
	}
	got, err := New(nil).Resolve(in)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dictionary", got[0].Detector)
	assert.Equal(t, 3, got[0].Meta(MetaSupport))
	assert.Nil(t, in[0].Meta(MetaSupport), "input spans are not mutated")
}

func randomSpans(rng *rand.Rand, n int) []span.Span {
	types := []span.Type{span.TypeName, span.TypeDate, span.TypeSSN, span.TypePhone}
	out := make([]span.Span, n)
	for i := range out {
		start := rng.IntN(90)
		end := start + 1 + rng.IntN(min(10, len(doc)-start))
		conf := float64(rng.IntN(5)) / 4
		out[i] = mk(start, end, types[rng.IntN(len(types))], conf, "d"+string(rune('a'+rng.IntN(3))))
	}
	return out
}

func TestResolveNonOverlapAndOrderIndependence(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	r := New(nil)

	for trial := 0; trial < 200; trial++ {
		in := randomSpans(rng, 1+rng.IntN(40))
		want, err := r.Resolve(in)
		require.NoError(t, err)

		for i := 1; i < len(want); i++ {
			require.LessOrEqual(t, want[i-1].End, want[i].Start, "trial %d: resolved spans overlap", trial)
		}

		for shuffle := 0; shuffle < 5; shuffle++ {
			perm := slices.Clone(in)
			rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
			got, err := r.Resolve(perm)
			require.NoError(t, err)
			require.Equal(t, want, got, "trial %d: result depends on input order", trial)
		}
	}
}

func TestResolveAgreesWithPairwiseRule(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	r := New(nil)
	for trial := 0; trial < 100; trial++ {
		in := randomSpans(rng, 12)
		kept, err := r.Resolve(in)
		require.NoError(t, err)

		// every dropped candidate must lose to some kept span it overlaps
		for _, c := range in {
			if slices.ContainsFunc(kept, func(k span.Span) bool { return Precedence(k, c) == 0 }) {
				continue
			}
			beaten := slices.ContainsFunc(kept, func(k span.Span) bool {
				return k.Overlaps(c) && Precedence(k, c) < 0
			})
			assert.True(t, beaten, "trial %d: %v dropped without a stronger overlapping span", trial, c)
		}
	}
}

func TestMergeEquivalentToSingleRun(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	a := randomSpans(rng, 15)
	b := randomSpans(rng, 15)
	r := New(nil)

	merged, err := r.Merge(a, b)
	require.NoError(t, err)
	together, err := r.Resolve(append(slices.Clone(a), b...))
	require.NoError(t, err)
	assert.Equal(t, together, merged)
}

func TestResolveRejectsMalformed(t *testing.T) {
	r := New(nil)
	bad := []span.Span{
		{Start: 5, End: 5, Text: ""},
		{Start: 8, End: 3, Text: ""},
		{Start: -1, End: 2, Text: "abc"},
		{Start: 0, End: 2, Text: "ab", Confidence: 1.2},
	}
	for _, s := range bad {
		_, err := r.Resolve([]span.Span{mk(0, 4, span.TypeName, 0.5, "ok"), s})
		assert.ErrorIs(t, err, span.ErrMalformedSpan, "%+v", s)
	}

	_, err := r.ResolveDocument("short", []span.Span{mk(0, 10, span.TypeName, 0.5, "x")})
	assert.ErrorIs(t, err, span.ErrMalformedSpan, "span past the end of the document")

	got, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIdenticalGroups(t *testing.T) {
	in := []span.Span{
		mk(30, 35, span.TypeDate, 0.6, "dates"),
		mk(30, 35, span.TypeAge, 0.6, "ages"),
		mk(0, 4, span.TypeName, 0.9, "a"),
		mk(0, 4, span.TypeName, 0.8, "b"),
		mk(10, 14, span.TypeMRN, 0.7, "mrn"),
		mk(10, 14, span.TypeAccount, 0.9, "acct"),
	}
	groups := IdenticalGroups(in)
	require.Len(t, groups, 2, "same-type duplicates are not ambiguous")
	assert.Equal(t, span.TypeAccount, groups[0][0].Type)
	assert.Equal(t, 30, groups[1][0].Start)
	assert.Equal(t, span.TypeAge, groups[1][0].Type, "ties ordered by type name")
}

func TestIndex(t *testing.T) {
	ix := NewIndex()
	ix.Insert(mk(10, 20, span.TypeName, 1, ""))
	ix.Insert(mk(30, 40, span.TypeName, 1, ""))

	_, hit := ix.Overlapping(mk(20, 30, span.TypeName, 1, ""))
	assert.False(t, hit)
	got, hit := ix.Overlapping(mk(15, 16, span.TypeName, 1, ""))
	assert.True(t, hit)
	assert.Equal(t, 10, got.Start)
	got, hit = ix.Overlapping(mk(25, 31, span.TypeName, 1, ""))
	assert.True(t, hit)
	assert.Equal(t, 30, got.Start)
	assert.Equal(t, 2, ix.Len())
}
