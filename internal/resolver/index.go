// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"github.com/emirpasic/gods/trees/redblacktree"

	"phi-guard/internal/span"
)

// Index holds pairwise disjoint spans ordered by start offset. Because the
// stored spans never overlap, only the floor and ceiling neighbours of a
// candidate's start can intersect it, so lookups are O(log n).
type Index struct {
	tree *redblacktree.Tree
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{tree: redblacktree.NewWithIntComparator()}
}

// Overlapping returns a stored span that overlaps s, if any.
func (ix *Index) Overlapping(s span.Span) (span.Span, bool) {
	if node, ok := ix.tree.Floor(s.Start); ok {
		if prev := node.Value.(span.Span); prev.End > s.Start {
			return prev, true
		}
	}
	if node, ok := ix.tree.Ceiling(s.Start); ok {
		if next := node.Value.(span.Span); next.Start < s.End {
			return next, true
		}
	}
	return span.Span{}, false
}

// Insert stores s. The caller must have checked that s overlaps nothing already
// stored.
func (ix *Index) Insert(s span.Span) {
	ix.tree.Put(s.Start, s)
}

// Spans returns the stored spans in ascending start order.
func (ix *Index) Spans() []span.Span {
	values := ix.tree.Values()
	out := make([]span.Span, len(values))
	for i, v := range values {
		out[i] = v.(span.Span)
	}
	return out
}

// Len returns the number of stored spans.
func (ix *Index) Len() int {
	return ix.tree.Size()
}
