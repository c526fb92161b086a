// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"context"
	"errors"
	"fmt"

	"phi-guard/internal/span"
)

// ErrDuplicateDetector is returned when two detectors share a name.
var ErrDuplicateDetector = errors.New("duplicate detector")

// Detector finds candidate PHI spans in a document. Implementations must be
// stateless across calls and safe to run concurrently with other detectors on the
// same text; shared dictionaries must be read-only.
type Detector interface {
	// Name identifies the detector in execution reports
	Name() string

	// Detect returns every candidate span found in text
	Detect(ctx context.Context, text string) ([]span.Span, error)
}

// Func adapts a plain function into a Detector.
type Func struct {
	name string
	fn   func(ctx context.Context, text string) ([]span.Span, error)
}

// NewFunc wraps fn as a named detector.
func NewFunc(name string, fn func(ctx context.Context, text string) ([]span.Span, error)) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the detector name
func (f *Func) Name() string {
	return f.name
}

// Detect calls the wrapped function
func (f *Func) Detect(ctx context.Context, text string) ([]span.Span, error) {
	return f.fn(ctx, text)
}

// Registry is an ordered set of detectors keyed by name. Build it once at
// startup; it is read-only afterwards.
type Registry struct {
	order  []Detector
	byName map[string]Detector
}

// NewRegistry creates a registry holding the given detectors.
func NewRegistry(detectors ...Detector) (*Registry, error) {
	r := &Registry{byName: make(map[string]Detector, len(detectors))}
	for _, d := range detectors {
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a detector. Names must be unique.
func (r *Registry) Register(d Detector) error {
	if d == nil {
		return fmt.Errorf("register detector: nil detector")
	}
	name := d.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateDetector, name)
	}
	r.byName[name] = d
	r.order = append(r.order, d)
	return nil
}

// Get looks a detector up by name.
func (r *Registry) Get(name string) (Detector, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// All returns the detectors in registration order.
func (r *Registry) All() []Detector {
	out := make([]Detector, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns detector names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	for i, d := range r.order {
		names[i] = d.Name()
	}
	return names
}

// Select returns the subset of detectors whose names are enabled. An empty
// filter selects everything.
func (r *Registry) Select(enabled []string) []Detector {
	if len(enabled) == 0 {
		return r.All()
	}
	want := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		want[name] = true
	}
	var out []Detector
	for _, d := range r.order {
		if want[d.Name()] {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of registered detectors.
func (r *Registry) Len() int {
	return len(r.order)
}
