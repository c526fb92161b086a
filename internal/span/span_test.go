// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package span

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	source := "Patient John Smith seen today"

	s, err := New(source, 8, 18, TypeName, 0.9)
	require.NoError(t, err)
	assert.Equal(t, "John Smith", s.Text)
	assert.Equal(t, 10, s.Len())

	tests := []struct {
		name       string
		start, end int
		confidence float64
	}{
		{"end equals start", 5, 5, 0.5},
		{"end before start", 6, 5, 0.5},
		{"negative start", -1, 4, 0.5},
		{"past document end", 20, 40, 0.5},
		{"confidence above one", 0, 4, 1.5},
		{"negative confidence", 0, 4, -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(source, tt.start, tt.end, TypeName, tt.confidence)
			assert.ErrorIs(t, err, ErrMalformedSpan)
		})
	}
}

func TestValidateAgainst(t *testing.T) {
	source := "DOB: 01/02/1990"
	s, err := New(source, 5, 15, TypeDate, 0.8)
	require.NoError(t, err)
	require.NoError(t, s.ValidateAgainst(source))

	tampered := s
	tampered.Text = "01/02/1991"
	assert.ErrorIs(t, tampered.ValidateAgainst(source), ErrMalformedSpan)

	short := s
	short.Text = "01/02"
	assert.ErrorIs(t, short.Validate(-1), ErrMalformedSpan)
}

func TestOverlapAndContainment(t *testing.T) {
	a := Span{Start: 0, End: 10}
	b := Span{Start: 5, End: 15}
	c := Span{Start: 10, End: 12}
	d := Span{Start: 2, End: 4}

	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c), "half-open ranges that touch do not overlap")
	assert.True(t, a.Contains(d))
	assert.False(t, d.Contains(a))
	assert.True(t, a.SameRange(Span{Start: 0, End: 10}))
}

func TestWithMetadataDoesNotAlias(t *testing.T) {
	base := Span{Start: 0, End: 3, Text: "abc", Metadata: map[string]any{"k": 1}}
	derived := base.WithMetadata("k", 2)

	assert.Equal(t, 1, base.Meta("k"))
	assert.Equal(t, 2, derived.Meta("k"))
	assert.Nil(t, Span{}.Meta("missing"))
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, TypeZipCode, NormalizeType(" zipcode "))
	assert.Equal(t, Type("PATIENT_NAME"), NormalizeType("patient-name"))
	assert.Equal(t, TypeHealthPlan, NormalizeType("health plan"))
}

func TestArenaResetClearsSlots(t *testing.T) {
	pool := NewArenaPool(4)
	arena := pool.Acquire()

	h := arena.Add(Span{Start: 0, End: 4, Text: "John", Type: TypeName, Metadata: map[string]any{"src": "dict"}})
	got, ok := arena.Get(h)
	require.True(t, ok)
	assert.Equal(t, "John", got.Text)

	got.Metadata["src"] = "mutated"
	again, _ := arena.Get(h)
	assert.Equal(t, "dict", again.Metadata["src"], "arena hands out copies")

	backing := arena.spans[:1]
	pool.Release(arena)
	assert.Equal(t, Span{}, backing[0], "released arena must not retain document text")
	assert.Equal(t, 0, arena.Len())

	_, ok = arena.Get(h)
	assert.False(t, ok)
}
