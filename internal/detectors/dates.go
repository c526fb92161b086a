// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detectors

import (
	"strconv"
	"strings"

	"phi-guard/internal/span"
)

const (
	monthNames = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\.?`

	datePattern = `(?i)\b(?:` +
		// 01/02/1990, 1-2-90, 01.02.1990
		`\d{1,2}[/.-]\d{1,2}[/.-](?:\d{4}|\d{2})` +
		// 1990-01-02
		`|\d{4}-\d{2}-\d{2}` +
		// January 2, 1990 and Jan 2nd 1990
		`|` + monthNames + `\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}` +
		// 2 January 1990
		`|\d{1,2}\s+` + monthNames + `,?\s+\d{4}` +
		`)\b`
)

// NewDate detects calendar dates in numeric and written forms.
func NewDate() *Pattern {
	p := newPattern("date", span.TypeDate, datePattern, 0.8)
	p.validate = validDate
	p.positiveKeywords = []string{"dob", "birth", "born", "admit", "discharge", "seen on", "visit", "date of", "deceased", "died"}
	p.negativeKeywords = []string{"version", "release", "copyright", "effective", "revised"}
	return p
}

// validDate rejects numeric dates with an impossible month or day. Written
// dates are accepted as matched.
func validDate(v string) bool {
	if strings.IndexFunc(v, func(r rune) bool { return r >= 'A' }) >= 0 {
		return true
	}
	parts := strings.FieldsFunc(v, func(r rune) bool { return r == '/' || r == '-' || r == '.' })
	if len(parts) != 3 {
		return false
	}
	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return false
		}
		nums[i] = n
	}
	month, day := nums[0], nums[1]
	if len(parts[0]) == 4 {
		month, day = nums[1], nums[2]
	} else if month > 12 && day <= 12 {
		// day-first order
		month, day = day, month
	}
	return month >= 1 && month <= 12 && day >= 1 && day <= 31
}
