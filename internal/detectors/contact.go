// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detectors

import (
	"strings"

	"phi-guard/internal/span"
)

// phonePattern matches North American numbers with optional country code and
// extension.
const phonePattern = `(?:\+?1[ .-]?)?(?:\(\d{3}\)\s?|\b\d{3}[ .-])\d{3}[ .-]\d{4}\b(?:\s*(?:x|ext\.?)\s*\d{1,5})?`

var faxKeywords = []string{"fax", "facsimile", "f:"}

// NewPhone detects telephone numbers. Numbers labeled as fax are left to the
// fax detector.
func NewPhone() *Pattern {
	p := newPattern("phone", span.TypePhone, phonePattern, 0.8)
	p.validate = validPhone
	p.score = func(v string, base float64) float64 {
		d := digitsOnly(v)
		if len(d) >= 10 && d[len(d)-7:len(d)-4] == "555" {
			// 555 exchange numbers are fictional
			return base - 0.3
		}
		return base
	}
	p.positiveKeywords = []string{"phone", "tel", "call", "cell", "mobile", "contact", "home", "work"}
	p.negativeKeywords = append(append([]string{}, faxKeywords...), commonNegatives...)
	p.keywordsBefore = true
	return p
}

// NewFax detects fax numbers. The number shape is the phone shape; only a fax
// label nearby tells them apart.
func NewFax() *Pattern {
	p := newPattern("fax", span.TypeFax, phonePattern, 0.8)
	p.validate = validPhone
	p.positiveKeywords = faxKeywords
	p.negativeKeywords = commonNegatives
	p.requireContext = true
	p.keywordsBefore = true
	return p
}

// validPhone applies NANP rules: area code and exchange cannot start with 0 or 1.
func validPhone(v string) bool {
	d := digitsOnly(v)
	if ext := strings.IndexAny(strings.ToLower(v), "xe"); ext >= 0 {
		d = digitsOnly(v[:ext])
	}
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) != 10 {
		return false
	}
	return d[0] >= '2' && d[3] >= '2' && !allSameDigit(d)
}
