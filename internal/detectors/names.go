// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package detectors

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"phi-guard/internal/chaos"
	"phi-guard/internal/detector"
	"phi-guard/internal/span"
)

// Embedded compressed name lists, one name per line
//
//go:embed data/first_names.txt.gz
var firstNamesGZ []byte

//go:embed data/last_names.txt.gz
var lastNamesGZ []byte

// NameDatabases holds the lower-cased name lists
type NameDatabases struct {
	FirstNames map[string]bool
	LastNames  map[string]bool
}

var (
	nameDatabases *NameDatabases
	loadOnce      sync.Once
	loadErr       error
)

// LoadNameDatabases decompresses the embedded name lists on first use. The
// result is shared and must not be modified.
func LoadNameDatabases() (*NameDatabases, error) {
	loadOnce.Do(func() {
		db := &NameDatabases{
			FirstNames: make(map[string]bool, 256),
			LastNames:  make(map[string]bool, 256),
		}
		if err := loadNames(firstNamesGZ, db.FirstNames); err != nil {
			loadErr = fmt.Errorf("failed to load first names: %w", err)
			return
		}
		if err := loadNames(lastNamesGZ, db.LastNames); err != nil {
			loadErr = fmt.Errorf("failed to load last names: %w", err)
			return
		}
		nameDatabases = db
	})
	return nameDatabases, loadErr
}

func loadNames(compressed []byte, into map[string]bool) error {
	reader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if isValidName(name) {
			into[strings.ToLower(name)] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading decompressed data: %w", err)
	}
	return nil
}

func isValidName(name string) bool {
	if len(name) < 2 || len(name) > 30 {
		return false
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-' || r == '\'') {
			return false
		}
	}
	return true
}

var (
	nameToken = regexp.MustCompile(`[A-Za-z][A-Za-z'-]*`)

	// a label that ends right where a name starts
	nameLabel = regexp.MustCompile(`(?i)\b(patient(\s+name)?|name|pt|mr\.?|mrs\.?|ms\.?|miss|dr\.?|doctor|physician|provider|attending)\s*[:#-]?\s*$`)

	// labels that mark the following name as a clinician
	providerLabel = regexp.MustCompile(`(?i)\b(dr\.?|doctor|physician|provider|attending)\s*[:#-]?\s*$`)

	providerSuffix = regexp.MustCompile(`^,?\s*(md|m\.d\.|do|rn|np|pa-c|dds)\b`)
)

// Names finds person names using the embedded first and last name lists.
// Confidence depends on the casing of the match and on how chaotic the
// document text is: in noisy OCR output a lower-case or all-caps name is
// much more plausible than in clean prose.
type Names struct {
	db       *NameDatabases
	analyzer *chaos.Analyzer
}

// NewNames creates the name detector. analyzer may be shared across
// detectors; nil disables chaos adjustment.
func NewNames(analyzer *chaos.Analyzer) (*Names, error) {
	db, err := LoadNameDatabases()
	if err != nil {
		return nil, err
	}
	return &Names{db: db, analyzer: analyzer}, nil
}

// Name returns the detector name
func (n *Names) Name() string {
	return "names"
}

// Detect finds first name, first+last and title+last name sequences.
func (n *Names) Detect(ctx context.Context, text string) ([]span.Span, error) {
	score := 0.0
	if n.analyzer != nil {
		score = n.analyzer.Analyze(text).Score
	}

	tokens := nameToken.FindAllStringIndex(text, -1)
	var spans []span.Span

	for i := 0; i < len(tokens); i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		start, end := tokens[i][0], tokens[i][1]
		word := strings.ToLower(text[start:end])
		prefix := detector.LinePrefix(text, start)
		label := nameLabel.FindString(prefix)
		isFirst := n.db.FirstNames[word]
		isLast := n.db.LastNames[word]

		if !isFirst && !(isLast && label != "") {
			continue
		}

		// extend over an optional middle initial and a last name
		hits := 1
		next := i + 1
		if next < len(tokens) && isInitial(text, tokens[next]) && adjacent(text, end, tokens[next][0]) {
			next++
		}
		if next < len(tokens) && adjacent(text, tokens[next-1][1], tokens[next][0]) {
			last := text[tokens[next][0]:tokens[next][1]]
			if n.db.LastNames[strings.ToLower(last)] || (label != "" && chaos.CasePatternOf(last) == chaos.CaseProper) {
				end = tokens[next][1]
				if n.db.LastNames[strings.ToLower(last)] {
					hits++
				}
				i = next
			}
		}

		value := text[start:end]
		single := !strings.ContainsAny(value, " \t")
		if single && label == "" && chaos.CasePatternOf(value) != chaos.CaseProper {
			// lone lower-case or shouting words are mostly vocabulary
			continue
		}

		confidence := chaos.NameConfidence(value, score, label != "")
		if single && label == "" {
			confidence *= 0.8
		}
		dictConfidence := 0.6 + 0.15*float64(hits)
		if hits == 2 {
			confidence = min(confidence+0.05, 0.98)
		}

		typ := span.TypeName
		if providerLabel.MatchString(prefix) || providerSuffix.MatchString(text[end:]) {
			typ = span.TypeProviderName
		}

		s, err := span.New(text, start, end, typ, confidence)
		if err != nil {
			return nil, err
		}
		s = s.WithDetector(n.Name()).WithMetadata(span.MetaDictionary, dictConfidence)
		if label != "" {
			s = s.WithMetadata(span.MetaLabel, strings.TrimSpace(label))
		}
		spans = append(spans, s)
	}
	return spans, nil
}

func isInitial(text string, tok []int) bool {
	return tok[1]-tok[0] == 1 && tok[1] < len(text) && text[tok[1]] == '.'
}

// adjacent reports whether only blanks and at most one period separate two
// tokens on the same line.
func adjacent(text string, from, to int) bool {
	gap := text[from:to]
	gap = strings.TrimPrefix(gap, ".")
	return gap != "" && strings.Trim(gap, " ") == "" && len(gap) <= 2
}
