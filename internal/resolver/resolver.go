// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package resolver reduces a raw candidate set to pairwise non-overlapping spans.
//
// Conflicts are decided by a fixed precedence: higher confidence wins; at equal
// confidence a span that contains the other wins; otherwise the earlier start
// wins. The resolver sorts candidates by that precedence and keeps each one that
// overlaps nothing already kept, so the result depends only on the multiset of
// input spans and never on their order.
package resolver

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"phi-guard/internal/span"
)

// MetaSupport is the metadata key recording how many candidates reported the
// same range and type as a resolved span, the span itself included.
const MetaSupport = "support"

// Resolver resolves overlapping span claims.
type Resolver struct {
	logger *slog.Logger
}

// New creates a resolver that logs through logger. A nil logger discards.
func New(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{logger: logger}
}

// Resolve returns a conflict-free subset of spans in ascending start order.
// Structurally malformed input is rejected with span.ErrMalformedSpan.
func (r *Resolver) Resolve(spans []span.Span) ([]span.Span, error) {
	for i, s := range spans {
		if err := s.Validate(-1); err != nil {
			return nil, fmt.Errorf("resolve span %d: %w", i, err)
		}
	}
	return r.resolve(spans), nil
}

// ResolveDocument is Resolve with every span also checked against the text it
// was detected in.
func (r *Resolver) ResolveDocument(text string, spans []span.Span) ([]span.Span, error) {
	for i, s := range spans {
		if err := s.ValidateAgainst(text); err != nil {
			return nil, fmt.Errorf("resolve span %d: %w", i, err)
		}
	}
	return r.resolve(spans), nil
}

// Merge unions several candidate batches and resolves them together, which
// gives the same result as resolving one batch holding all of them.
func (r *Resolver) Merge(batches ...[]span.Span) ([]span.Span, error) {
	return r.Resolve(slices.Concat(batches...))
}

func (r *Resolver) resolve(spans []span.Span) []span.Span {
	if len(spans) == 0 {
		return []span.Span{}
	}

	ordered := slices.Clone(spans)
	slices.SortFunc(ordered, Precedence)

	support := make(map[rangeKey]int, len(ordered))
	for _, s := range ordered {
		support[keyOf(s)]++
	}

	ix := NewIndex()
	dropped := 0
	for _, s := range ordered {
		if _, conflict := ix.Overlapping(s); conflict {
			dropped++
			continue
		}
		ix.Insert(s.WithMetadata(MetaSupport, support[keyOf(s)]))
	}

	r.logger.Debug("resolved spans",
		"candidates", len(spans),
		"kept", ix.Len(),
		"dropped", dropped)

	return ix.Spans()
}

// Precedence orders spans from strongest to weakest claim. It is a total order
// over everything except Metadata, so sorting with it is deterministic.
func Precedence(a, b span.Span) int {
	if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	// Same start: the longer span contains the shorter one.
	if c := cmp.Compare(b.End, a.End); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Text, b.Text); c != 0 {
		return c
	}
	return cmp.Compare(a.Detector, b.Detector)
}

// IdenticalGroups returns the sets of candidates that cover exactly the same
// range but disagree on type, in ascending range order. Each group is sorted by
// Precedence. These are the spans that need type disambiguation before
// resolution.
func IdenticalGroups(spans []span.Span) [][]span.Span {
	byRange := make(map[[2]int][]span.Span)
	for _, s := range spans {
		k := [2]int{s.Start, s.End}
		byRange[k] = append(byRange[k], s)
	}

	var groups [][]span.Span
	for _, members := range byRange {
		if len(members) < 2 || !mixedTypes(members) {
			continue
		}
		slices.SortFunc(members, Precedence)
		groups = append(groups, members)
	}
	slices.SortFunc(groups, func(a, b []span.Span) int {
		if c := cmp.Compare(a[0].Start, b[0].Start); c != 0 {
			return c
		}
		return cmp.Compare(a[0].End, b[0].End)
	})
	return groups
}

func mixedTypes(spans []span.Span) bool {
	for _, s := range spans[1:] {
		if s.Type != spans[0].Type {
			return true
		}
	}
	return false
}

type rangeKey struct {
	start, end int
	typ        span.Type
}

func keyOf(s span.Span) rangeKey {
	return rangeKey{start: s.Start, end: s.End, typ: s.Type}
}
