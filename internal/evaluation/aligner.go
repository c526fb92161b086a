// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package evaluation aligns detected spans with ground truth annotations and
// counts matches under the five SemEval strictness modes: strict, exact,
// partial, type and ent_type.
package evaluation

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"phi-guard/internal/span"
)

// DefaultPartialThreshold is the overlap ratio at which a boundary mismatch
// still counts as a hit in the partial mode.
const DefaultPartialThreshold = 0.5

// DefaultAliases maps common alternate labels to canonical types.
func DefaultAliases() map[string]span.Type {
	return map[string]span.Type{
		"DOB":                    span.TypeDate,
		"DATE_OF_BIRTH":          span.TypeDate,
		"PATIENT":                span.TypeName,
		"PATIENT_NAME":           span.TypeName,
		"PERSON":                 span.TypeName,
		"DOCTOR":                 span.TypeProviderName,
		"PHYSICIAN":              span.TypeProviderName,
		"ZIP":                    span.TypeZipCode,
		"ZIP_CODE":               span.TypeZipCode,
		"MEDICAL_RECORD_NUMBER":  span.TypeMRN,
		"MEDICALRECORD":          span.TypeMRN,
		"TELEPHONE":              span.TypePhone,
		"PHONE_NUMBER":           span.TypePhone,
		"EMAIL_ADDRESS":          span.TypeEmail,
		"IP_ADDRESS":             span.TypeIP,
		"SOCIAL_SECURITY_NUMBER": span.TypeSSN,
		"HEALTHPLAN":             span.TypeHealthPlan,
	}
}

// Aligner performs one-to-one best-overlap alignment. It is immutable after
// construction and safe for concurrent use.
type Aligner struct {
	partialThreshold float64
	aliases          map[string]span.Type
}

// NewAligner creates an aligner. Aliases are merged over DefaultAliases; keys
// and values are normalized. A non-positive threshold selects the default.
func NewAligner(partialThreshold float64, aliases map[string]string) *Aligner {
	if partialThreshold <= 0 || partialThreshold > 1 {
		partialThreshold = DefaultPartialThreshold
	}
	merged := DefaultAliases()
	for from, to := range aliases {
		merged[string(span.NormalizeType(from))] = span.NormalizeType(to)
	}
	return &Aligner{partialThreshold: partialThreshold, aliases: merged}
}

// PartialThreshold returns the configured overlap ratio threshold.
func (a *Aligner) PartialThreshold() float64 {
	return a.partialThreshold
}

// Canonical maps a type label to its canonical type.
func (a *Aligner) Canonical(t span.Type) span.Type {
	n := span.NormalizeType(string(t))
	if alias, ok := a.aliases[string(n)]; ok {
		return alias
	}
	return n
}

// Align matches predictions to ground truth and counts every mode. Each input
// item appears in exactly one alignment.
func (a *Aligner) Align(predictions, groundTruth []Entity) (Results, error) {
	preds, err := a.prepare(predictions, "prediction")
	if err != nil {
		return Results{}, err
	}
	gts, err := a.prepare(groundTruth, "ground truth")
	if err != nil {
		return Results{}, err
	}

	res := Results{Alignments: make([]Alignment, 0, len(preds)+len(gts))}
	used := make([]bool, len(gts))

	for i := range preds {
		p := &preds[i]
		best, bestRatio, bestOverlap := -1, 0.0, 0
		for j := range gts {
			if used[j] {
				continue
			}
			ov := overlap(*p, gts[j])
			if ov == 0 {
				continue
			}
			if ratio := iou(*p, gts[j], ov); ratio > bestRatio {
				best, bestRatio, bestOverlap = j, ratio, ov
			}
		}

		if best < 0 {
			res.Alignments = append(res.Alignments, Alignment{Prediction: p, MatchType: MatchSpurious})
			continue
		}

		used[best] = true
		g := &gts[best]
		al := Alignment{
			Prediction:   p,
			GroundTruth:  g,
			OverlapChars: bestOverlap,
			OverlapRatio: bestRatio,
			TypeMatches:  p.Type == g.Type,
		}
		switch {
		case !al.TypeMatches:
			al.MatchType = MatchTypeMismatch
		case sameBoundary(*p, *g):
			al.MatchType = MatchExact
		default:
			al.MatchType = MatchPartial
		}
		res.Alignments = append(res.Alignments, al)
	}

	for j := range gts {
		if !used[j] {
			res.Alignments = append(res.Alignments, Alignment{GroundTruth: &gts[j], MatchType: MatchMissing})
		}
	}

	for _, al := range res.Alignments {
		a.count(&res, al)
	}

	if err := verify(&res, len(preds), len(gts)); err != nil {
		return Results{}, err
	}
	return res, nil
}

// count applies one alignment to every mode's counters.
//
// A matched pair lands in exactly one of tp, partial or "wrong" per mode,
// where wrong costs one fp and one fn. Unmatched items are fp (spurious) or fn
// (missing) in every mode.
//
// exact ignores type entirely, so a type_mismatch with identical boundaries is
// an exact tp.
func (a *Aligner) count(r *Results, al Alignment) {
	switch {
	case al.Prediction == nil:
		for _, m := range r.modes() {
			m.FN++
		}
		return
	case al.GroundTruth == nil:
		for _, m := range r.modes() {
			m.FP++
		}
		return
	}

	boundary := sameBoundary(*al.Prediction, *al.GroundTruth)
	typed := al.TypeMatches
	enough := al.OverlapRatio >= a.partialThreshold

	hit := func(m *ModeResults) { m.TP++ }
	wrong := func(m *ModeResults) { m.FP++; m.FN++ }

	if boundary && typed {
		hit(&r.Strict)
	} else {
		wrong(&r.Strict)
	}

	if boundary {
		hit(&r.Exact)
	} else {
		wrong(&r.Exact)
	}

	switch {
	case boundary || enough:
		hit(&r.Partial)
	default:
		r.Partial.Partial++
	}

	if typed {
		hit(&r.Type)
	} else {
		wrong(&r.Type)
	}

	// every matched pair overlaps, so ent_type only asks for the type
	if typed {
		hit(&r.EntType)
	} else {
		wrong(&r.EntType)
	}
}

// verify checks that every item was aligned exactly once and that every mode's
// counters reconcile with the alignment list.
func verify(r *Results, nPred, nGT int) error {
	c := r.Counts()
	if c.Predictions != nPred || c.GroundTruth != nGT {
		return fmt.Errorf("%w: aligned %d/%d predictions and %d/%d ground truth items",
			ErrAlignmentImbalance, c.Predictions, nPred, c.GroundTruth, nGT)
	}
	if len(r.Alignments) != nPred+nGT-c.Matched {
		return fmt.Errorf("%w: %d alignments for %d matched pairs", ErrAlignmentImbalance, len(r.Alignments), c.Matched)
	}
	for i, m := range r.modes() {
		wrongFP := m.FP - c.Spurious
		wrongFN := m.FN - c.Missing
		if wrongFP < 0 || wrongFP != wrongFN || m.TP+m.Partial+wrongFP != c.Matched {
			return fmt.Errorf("%w: %s counters %+v do not reconcile with %+v",
				ErrAlignmentImbalance, Modes[i], *m, c)
		}
	}
	return nil
}

// AlignByType runs an independent alignment for every canonical type present
// on either side.
func (a *Aligner) AlignByType(predictions, groundTruth []Entity) (map[span.Type]Results, error) {
	predsByType := make(map[span.Type][]Entity)
	for _, p := range predictions {
		t := a.Canonical(p.Type)
		predsByType[t] = append(predsByType[t], p)
	}
	gtsByType := make(map[span.Type][]Entity)
	for _, g := range groundTruth {
		t := a.Canonical(g.Type)
		gtsByType[t] = append(gtsByType[t], g)
	}

	types := slices.Collect(maps.Keys(predsByType))
	for t := range gtsByType {
		if _, ok := predsByType[t]; !ok {
			types = append(types, t)
		}
	}

	out := make(map[span.Type]Results, len(types))
	for _, t := range types {
		res, err := a.Align(predsByType[t], gtsByType[t])
		if err != nil {
			return nil, fmt.Errorf("align %s: %w", t, err)
		}
		out[t] = res
	}
	return out, nil
}

// Aggregate sums counters across results and concatenates their alignments.
func Aggregate(results ...Results) Results {
	var total Results
	for _, r := range results {
		total.Strict.add(r.Strict)
		total.Exact.add(r.Exact)
		total.Partial.add(r.Partial)
		total.Type.add(r.Type)
		total.EntType.add(r.EntType)
		total.Alignments = append(total.Alignments, r.Alignments...)
	}
	return total
}

// AggregateByType merges per-type results across documents.
func AggregateByType(perDoc ...map[span.Type]Results) map[span.Type]Results {
	out := make(map[span.Type]Results)
	for _, doc := range perDoc {
		for t, r := range doc {
			out[t] = Aggregate(out[t], r)
		}
	}
	return out
}

// prepare validates entities, canonicalizes their types and sorts them by
// start offset.
func (a *Aligner) prepare(in []Entity, side string) ([]Entity, error) {
	out := make([]Entity, len(in))
	for i, e := range in {
		if e.Start < 0 || e.End <= e.Start {
			return nil, fmt.Errorf("%w: %s %d has range [%d,%d)", ErrMalformedSpan, side, i, e.Start, e.End)
		}
		e.Type = a.Canonical(e.Type)
		out[i] = e
	}
	slices.SortStableFunc(out, func(x, y Entity) int {
		if c := cmp.Compare(x.Start, y.Start); c != 0 {
			return c
		}
		return cmp.Compare(x.End, y.End)
	})
	return out, nil
}

func overlap(a, b Entity) int {
	return max(0, min(a.End, b.End)-max(a.Start, b.Start))
}

// iou is intersection over union of the two ranges.
func iou(a, b Entity, intersection int) float64 {
	union := max(a.End, b.End) - min(a.Start, b.Start)
	return float64(intersection) / float64(union)
}

func sameBoundary(a, b Entity) bool {
	return a.Start == b.Start && a.End == b.End
}
