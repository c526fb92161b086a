// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package span

import "sync"

// Handle addresses a span stored in an Arena.
type Handle int

// Arena is an append-only span store for a single document. It is not safe for
// concurrent use; each document gets its own arena.
type Arena struct {
	spans []Span
}

// NewArena creates an arena with room for capacity spans.
func NewArena(capacity int) *Arena {
	return &Arena{spans: make([]Span, 0, capacity)}
}

// Add stores a copy of s and returns its handle.
func (a *Arena) Add(s Span) Handle {
	a.spans = append(a.spans, s.Clone())
	return Handle(len(a.spans) - 1)
}

// Get returns a copy of the span behind h.
func (a *Arena) Get(h Handle) (Span, bool) {
	if h < 0 || int(h) >= len(a.spans) {
		return Span{}, false
	}
	return a.spans[h].Clone(), true
}

// Len returns the number of stored spans.
func (a *Arena) Len() int {
	return len(a.spans)
}

// Spans copies every stored span out of the arena.
func (a *Arena) Spans() []Span {
	out := make([]Span, len(a.spans))
	for i, s := range a.spans {
		out[i] = s.Clone()
	}
	return out
}

// Reset zeroes every slot so no text from the previous document survives, then
// truncates the arena for reuse.
func (a *Arena) Reset() {
	clear(a.spans)
	a.spans = a.spans[:0]
}

// ArenaPool recycles arenas between documents. An arena obtained from Acquire
// belongs to one caller until it is handed back with Release.
type ArenaPool struct {
	pool sync.Pool
}

// NewArenaPool creates a pool whose fresh arenas start with the given capacity.
func NewArenaPool(capacity int) *ArenaPool {
	p := &ArenaPool{}
	p.pool.New = func() any {
		return NewArena(capacity)
	}
	return p
}

// Acquire returns an empty arena.
func (p *ArenaPool) Acquire() *Arena {
	return p.pool.Get().(*Arena)
}

// Release resets the arena and returns it to the pool. The caller must not use
// it afterwards.
func (p *ArenaPool) Release(a *Arena) {
	if a == nil {
		return
	}
	a.Reset()
	p.pool.Put(a)
}
