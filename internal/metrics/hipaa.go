// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import "fmt"

// RiskLevel is the compliance risk classification.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Sensitivity thresholds on strict-mode results
const (
	TargetSensitivity  = 0.99
	MediumSensitivity  = 0.97
	HighSensitivity    = 0.95
	MinimumSpecificity = 0.90
	thresholdTolerance = 1e-12
)

// HIPAAAssessment is the externally visible compliance verdict.
type HIPAAAssessment struct {
	RiskLevel       RiskLevel `json:"risk_level" yaml:"risk_level"`
	Compliant       bool      `json:"compliant" yaml:"compliant"`
	Sensitivity     float64   `json:"sensitivity" yaml:"sensitivity"`
	Specificity     float64   `json:"specificity" yaml:"specificity"`
	LowSpecificity  bool      `json:"low_specificity" yaml:"low_specificity"`
	Findings        []string  `json:"findings" yaml:"findings"`
	Recommendations []string  `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}

// AssessHIPAACompliance classifies risk from strict-mode sensitivity. A value
// exactly on a threshold falls in the better bucket. Specificity is only judged
// when true negatives were supplied.
func AssessHIPAACompliance(all AllModeMetrics) HIPAAAssessment {
	strict := all.Strict
	sens := strict.Sensitivity

	a := HIPAAAssessment{
		Sensitivity: sens,
		Specificity: strict.Specificity,
	}

	switch {
	case atLeast(sens, TargetSensitivity):
		a.RiskLevel = RiskLow
		a.Compliant = true
		a.Findings = append(a.Findings, fmt.Sprintf("strict sensitivity %.2f%% meets the %.0f%% target", sens*100, TargetSensitivity*100))
	case atLeast(sens, MediumSensitivity):
		a.RiskLevel = RiskMedium
		a.Findings = append(a.Findings, fmt.Sprintf("strict sensitivity %.2f%% is below the %.0f%% target", sens*100, TargetSensitivity*100))
		a.Recommendations = append(a.Recommendations, "review missed identifiers by type and extend the weakest detectors")
	case atLeast(sens, HighSensitivity):
		a.RiskLevel = RiskHigh
		a.Findings = append(a.Findings, fmt.Sprintf("strict sensitivity %.2f%% leaves a material share of PHI unredacted", sens*100))
		a.Recommendations = append(a.Recommendations, "do not release de-identified output without manual review")
	default:
		a.RiskLevel = RiskCritical
		a.Findings = append(a.Findings, fmt.Sprintf("strict sensitivity %.2f%% is below the %.0f%% floor", sens*100, HighSensitivity*100))
		a.Recommendations = append(a.Recommendations, "output is not de-identified; block release")
	}

	if strict.FN > 0 {
		a.Findings = append(a.Findings, fmt.Sprintf("%.1f identifiers missed under strict matching", strict.FN))
	}

	if strict.TN > 0 && strict.Specificity < MinimumSpecificity {
		a.LowSpecificity = true
		a.Findings = append(a.Findings, fmt.Sprintf("specificity %.2f%% is below %.0f%%: over-redaction degrades data utility",
			strict.Specificity*100, MinimumSpecificity*100))
		a.Recommendations = append(a.Recommendations, "tighten context rules for the noisiest detectors")
	}

	return a
}

func atLeast(v, threshold float64) bool {
	return v >= threshold-thresholdTolerance
}
