// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package metrics derives classification metrics and the HIPAA risk verdict
// from evaluation counters. Every ratio is 0 when its denominator is 0.
package metrics

import (
	"math"

	"phi-guard/internal/evaluation"
)

// ClassificationMetrics are the derived scores for one mode. TP and FN are
// effective counts: each partial match counts half toward both.
type ClassificationMetrics struct {
	TP float64 `json:"tp" yaml:"tp"`
	FP float64 `json:"fp" yaml:"fp"`
	FN float64 `json:"fn" yaml:"fn"`
	TN float64 `json:"tn" yaml:"tn"`

	Sensitivity      float64 `json:"sensitivity" yaml:"sensitivity"`
	Specificity      float64 `json:"specificity" yaml:"specificity"`
	Precision        float64 `json:"precision" yaml:"precision"`
	F1               float64 `json:"f1" yaml:"f1"`
	F2               float64 `json:"f2" yaml:"f2"`
	F05              float64 `json:"f0_5" yaml:"f0_5"`
	MCC              float64 `json:"mcc" yaml:"mcc"`
	Kappa            float64 `json:"kappa" yaml:"kappa"`
	BalancedAccuracy float64 `json:"balanced_accuracy" yaml:"balanced_accuracy"`
	Dice             float64 `json:"dice" yaml:"dice"`
	Jaccard          float64 `json:"jaccard" yaml:"jaccard"`
	Accuracy         float64 `json:"accuracy" yaml:"accuracy"`
}

// AllModeMetrics holds the metrics of every evaluation mode.
type AllModeMetrics struct {
	Strict  ClassificationMetrics `json:"strict" yaml:"strict"`
	Exact   ClassificationMetrics `json:"exact" yaml:"exact"`
	Partial ClassificationMetrics `json:"partial" yaml:"partial"`
	Type    ClassificationMetrics `json:"type" yaml:"type"`
	EntType ClassificationMetrics `json:"ent_type" yaml:"ent_type"`
}

// Mode returns the metrics for a mode name.
func (a AllModeMetrics) Mode(name string) (ClassificationMetrics, bool) {
	switch name {
	case evaluation.ModeStrict:
		return a.Strict, true
	case evaluation.ModeExact:
		return a.Exact, true
	case evaluation.ModePartial:
		return a.Partial, true
	case evaluation.ModeType:
		return a.Type, true
	case evaluation.ModeEntType:
		return a.EntType, true
	}
	return ClassificationMetrics{}, false
}

// Calculator turns counters into metrics. True negatives cannot be enumerated
// over free text, so they are supplied as a constant.
type Calculator struct {
	trueNegatives float64
}

// NewCalculator creates a calculator using tn true negatives. Negative values
// are treated as zero.
func NewCalculator(tn int) *Calculator {
	return &Calculator{trueNegatives: float64(max(tn, 0))}
}

// CalculateAllModes computes metrics for every mode of r.
func (c *Calculator) CalculateAllModes(r evaluation.Results) AllModeMetrics {
	return AllModeMetrics{
		Strict:  c.Calculate(r.Strict),
		Exact:   c.Calculate(r.Exact),
		Partial: c.Calculate(r.Partial),
		Type:    c.Calculate(r.Type),
		EntType: c.Calculate(r.EntType),
	}
}

// Calculate computes metrics for one mode's counters.
func (c *Calculator) Calculate(m evaluation.ModeResults) ClassificationMetrics {
	half := 0.5 * float64(m.Partial)
	tp := float64(m.TP) + half
	fp := float64(m.FP)
	fn := float64(m.FN) + half
	tn := c.trueNegatives
	n := tp + fp + fn + tn

	out := ClassificationMetrics{TP: tp, FP: fp, FN: fn, TN: tn}
	out.Sensitivity = ratio(tp, tp+fn)
	out.Specificity = ratio(tn, tn+fp)
	out.Precision = ratio(tp, tp+fp)
	out.F1 = fBeta(out.Precision, out.Sensitivity, 1)
	out.F2 = fBeta(out.Precision, out.Sensitivity, 2)
	out.F05 = fBeta(out.Precision, out.Sensitivity, 0.5)
	out.MCC = ratio(tp*tn-fp*fn, math.Sqrt((tp+fp)*(tp+fn)*(tn+fp)*(tn+fn)))
	out.Kappa = kappa(tp, fp, fn, tn)
	out.BalancedAccuracy = (out.Sensitivity + out.Specificity) / 2
	out.Dice = ratio(2*tp, 2*tp+fp+fn)
	out.Jaccard = ratio(tp, tp+fp+fn)
	out.Accuracy = ratio(tp+tn, n)
	return out
}

// fBeta is (1+β²)PR / (β²P + R).
func fBeta(p, r, beta float64) float64 {
	b2 := beta * beta
	return ratio((1+b2)*p*r, b2*p+r)
}

// kappa is Cohen's kappa of the 2×2 confusion matrix.
func kappa(tp, fp, fn, tn float64) float64 {
	n := tp + fp + fn + tn
	if n == 0 {
		return 0
	}
	observed := (tp + tn) / n
	expected := ((tp+fp)*(tp+fn) + (fn+tn)*(fp+tn)) / (n * n)
	return ratio(observed-expected, 1-expected)
}

func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	r := num / den
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
