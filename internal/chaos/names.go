// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package chaos

import (
	"math"
	"strings"
	"unicode"
)

// CasePattern is the casing shape of a token or name.
type CasePattern string

const (
	CaseProper  CasePattern = "PROPER"
	CaseAllCaps CasePattern = "ALL_CAPS"
	CaseLower   CasePattern = "ALL_LOWER"
	CaseChaos   CasePattern = "CHAOS"
)

// NameWeights are base confidences for a candidate name by casing, tuned to the
// document's chaos level.
type NameWeights struct {
	Proper     float64
	AllCaps    float64
	AllLower   float64
	Chaotic    float64
	LabelBoost float64
}

// WeightsFor returns the name weights for a chaos score. Noisy documents trust
// odd casing more and reward an explicit field label more.
func WeightsFor(score float64) NameWeights {
	switch {
	case score > 0.5:
		return NameWeights{Proper: 0.90, AllCaps: 0.88, AllLower: 0.85, Chaotic: 0.75, LabelBoost: 0.20}
	case score > 0.2:
		return NameWeights{Proper: 0.92, AllCaps: 0.88, AllLower: 0.82, Chaotic: 0.65, LabelBoost: 0.15}
	default:
		return NameWeights{Proper: 0.95, AllCaps: 0.90, AllLower: 0.80, Chaotic: 0.50, LabelBoost: 0.10}
	}
}

// CasePatternOf classifies the casing of s, ignoring non-letters.
func CasePatternOf(s string) CasePattern {
	s = strings.TrimSpace(s)
	letters := strings.Map(func(r rune) rune {
		if isASCIILetter(r) {
			return r
		}
		return -1
	}, s)
	if letters == "" {
		return CaseChaos
	}
	if strings.ToUpper(letters) == letters {
		return CaseAllCaps
	}
	if strings.ToLower(letters) == letters {
		return CaseLower
	}

	for _, word := range strings.Fields(s) {
		var cleaned []rune
		for _, r := range word {
			if isASCIILetter(r) {
				cleaned = append(cleaned, r)
			}
		}
		if len(cleaned) == 0 {
			continue
		}
		if !unicode.IsUpper(cleaned[0]) {
			return CaseChaos
		}
		for _, r := range cleaned[1:] {
			if !unicode.IsLower(r) {
				return CaseChaos
			}
		}
	}
	return CaseProper
}

// NameConfidence scores a candidate name by its casing under the given chaos
// score, adding the label boost when a field label precedes it.
func NameConfidence(name string, score float64, hasLabel bool) float64 {
	w := WeightsFor(score)
	var c float64
	switch CasePatternOf(name) {
	case CaseProper:
		c = w.Proper
	case CaseAllCaps:
		c = w.AllCaps
	case CaseLower:
		c = w.AllLower
	default:
		c = w.Chaotic
	}
	if hasLabel {
		c = math.Min(c+w.LabelBoost, 0.98)
	}
	return c
}
