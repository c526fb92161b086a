// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detector

import (
	"strings"
	"unicode/utf8"
)

// ContextInfo is the text surrounding a candidate span.
type ContextInfo struct {
	// Text before and after the span, limited to the window size
	BeforeText string
	AfterText  string

	// Line containing the start of the span
	FullLine string
}

// Lower returns the before and after text joined and lower-cased, which is the
// form keyword matching works on.
func (c ContextInfo) Lower() string {
	return strings.ToLower(c.BeforeText + " " + c.AfterText)
}

// ContextExtractor extracts the window around a span
type ContextExtractor struct {
	// Number of bytes before and after the span to consider
	ContextChars int
}

// NewContextExtractor creates a new context extractor with default settings
func NewContextExtractor() *ContextExtractor {
	return &ContextExtractor{
		ContextChars: 50,
	}
}

// WithContextChars sets the number of context characters
func (ce *ContextExtractor) WithContextChars(chars int) *ContextExtractor {
	ce.ContextChars = chars
	return ce
}

// Extract returns the context around text[start:end]. Window edges are moved
// inward to the nearest rune boundary.
func (ce *ContextExtractor) Extract(text string, start, end int) ContextInfo {
	start = clamp(start, 0, len(text))
	end = clamp(end, start, len(text))

	from := alignForward(text, max(0, start-ce.ContextChars))
	to := alignBackward(text, min(len(text), end+ce.ContextChars))

	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	lineEnd := strings.IndexByte(text[start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += start
	}

	return ContextInfo{
		BeforeText: text[from:start],
		AfterText:  text[end:to],
		FullLine:   text[lineStart:lineEnd],
	}
}

// LinePrefix returns the text between the start of the line and start.
func LinePrefix(text string, start int) string {
	start = clamp(start, 0, len(text))
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	return text[lineStart:start]
}

func alignForward(text string, i int) int {
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i++
	}
	return i
}

func alignBackward(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
