// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package chaos scores how degraded a document's text is (OCR noise, broken
// casing, stray symbols) and derives a detection threshold from that score.
package chaos

import (
	"crypto/sha256"
	"math"
	"slices"
	"strings"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Quality buckets
const (
	QualityClean    = "CLEAN"
	QualityNoisy    = "NOISY"
	QualityDegraded = "DEGRADED"
	QualityChaotic  = "CHAOTIC"
)

const (
	// MaxThreshold is the recommended threshold for perfectly clean text.
	MaxThreshold = 0.85
	// MinThreshold is approached as text becomes fully chaotic.
	MinThreshold = 0.55

	thresholdSteepness = 8.0
	thresholdMidpoint  = 0.35
	labelBoostScore    = 0.3

	// DefaultCacheSize bounds the number of cached analyses.
	DefaultCacheSize = 128
)

// indicator weights: digit, case, spacing, corruption, entropy
var weights = [5]float64{0.30, 0.25, 0.20, 0.15, 0.10}

// Indicators are the individual noise measurements, each in [0,1].
type Indicators struct {
	DigitSubstitutions float64 `json:"digit_substitutions" yaml:"digit_substitutions"`
	CaseChaos          float64 `json:"case_chaos" yaml:"case_chaos"`
	SpacingAnomalies   float64 `json:"spacing_anomalies" yaml:"spacing_anomalies"`
	CharCorruption     float64 `json:"char_corruption" yaml:"char_corruption"`
	CharEntropy        float64 `json:"char_entropy" yaml:"char_entropy"`
}

// Analysis is the noise assessment of one document.
type Analysis struct {
	Score                float64    `json:"score" yaml:"score"`
	Indicators           Indicators `json:"indicators" yaml:"indicators"`
	RecommendedThreshold float64    `json:"recommended_threshold" yaml:"recommended_threshold"`
	EnableLabelBoost     bool       `json:"enable_label_boost" yaml:"enable_label_boost"`
	Quality              string     `json:"quality" yaml:"quality"`
}

// Adjust rescales a detector confidence so that the document's recommended
// threshold maps onto the clean-text threshold. On clean text it is the
// identity; on noisy text it raises confidences.
func (a Analysis) Adjust(confidence float64) float64 {
	if a.RecommendedThreshold <= 0 {
		return confidence
	}
	return math.Max(0, math.Min(1, confidence*MaxThreshold/a.RecommendedThreshold))
}

// Analyzer computes and caches analyses. It is safe for concurrent use.
type Analyzer struct {
	cache *lru.Cache[[sha256.Size]byte, Analysis]
}

// NewAnalyzer creates an analyzer caching up to size results. A size of zero or
// less disables caching.
func NewAnalyzer(size int) *Analyzer {
	a := &Analyzer{}
	if size > 0 {
		// lru.New only fails for non-positive sizes
		a.cache, _ = lru.New[[sha256.Size]byte, Analysis](size)
	}
	return a
}

// Analyze scores text.
func (a *Analyzer) Analyze(text string) Analysis {
	if a.cache == nil {
		return analyze(text)
	}
	key := sha256.Sum256([]byte(text))
	if cached, ok := a.cache.Get(key); ok {
		return cached
	}
	result := analyze(text)
	a.cache.Add(key, result)
	return result
}

// Purge empties the cache.
func (a *Analyzer) Purge() {
	if a.cache != nil {
		a.cache.Purge()
	}
}

func analyze(text string) Analysis {
	runes := []rune(text)
	ind := Indicators{
		DigitSubstitutions: digitSubstitutions(runes, len(text)),
		CaseChaos:          caseChaos(text),
		SpacingAnomalies:   spacingAnomalies(runes, len(text)),
		CharCorruption:     charCorruption(runes, len(text)),
		CharEntropy:        charEntropy(runes),
	}

	score := ind.DigitSubstitutions*weights[0] +
		ind.CaseChaos*weights[1] +
		ind.SpacingAnomalies*weights[2] +
		ind.CharCorruption*weights[3] +
		ind.CharEntropy*weights[4]
	score = math.Min(score, 1)

	return Analysis{
		Score:                score,
		Indicators:           ind,
		RecommendedThreshold: Threshold(score),
		EnableLabelBoost:     score > labelBoostScore,
		Quality:              ClassifyQuality(score),
	}
}

// Threshold maps a chaos score to a detection threshold, sliding from
// MaxThreshold down to MinThreshold along a sigmoid. Rounded to two decimals.
func Threshold(score float64) float64 {
	s := sigmoid(thresholdSteepness * (score - thresholdMidpoint))
	t := MaxThreshold - (MaxThreshold-MinThreshold)*s
	return math.Round(t*100) / 100
}

// ClassifyQuality buckets a chaos score.
func ClassifyQuality(score float64) string {
	switch {
	case score < 0.15:
		return QualityClean
	case score < 0.35:
		return QualityNoisy
	case score < 0.6:
		return QualityDegraded
	default:
		return QualityChaotic
	}
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// digitSubstitutions counts look-alike digits wedged between letters (J0hn, 5mith).
func digitSubstitutions(runes []rune, byteLen int) float64 {
	count := 0
	for i := 1; i+1 < len(runes); i++ {
		if !isASCIILetter(runes[i-1]) || !isASCIILetter(runes[i+1]) {
			continue
		}
		switch runes[i] {
		case '0', '1', '3', '4', '5', '6', '8':
			count++
		}
	}
	norm := float64(count) / math.Max(float64(byteLen)/10, 100)
	return math.Min(norm*2, 1)
}

// caseChaos is the share of words (3+ letters) whose casing is none of upper,
// lower, Proper or camelCase, tripled and capped.
func caseChaos(text string) float64 {
	total, chaotic := 0, 0
	words := strings.FieldsFunc(text, func(r rune) bool { return !isASCIILetter(r) })
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		total++
		if CasePatternOf(w) == CaseChaos && !isCamel(w) {
			chaotic++
		}
	}
	if total == 0 {
		return 0
	}
	return math.Min(float64(chaotic)/float64(total)*3, 1)
}

func isCamel(w string) bool {
	if w == "" || !unicode.IsLower(rune(w[0])) {
		return false
	}
	return strings.IndexFunc(w[1:], unicode.IsUpper) >= 0
}

func spacingAnomalies(runes []rune, byteLen int) float64 {
	anomalies := 0

	run := 0
	for _, r := range runes {
		if unicode.IsSpace(r) {
			run++
			if run >= 3 {
				anomalies++
				run = 0
			}
		} else {
			run = 0
		}
	}

	for i := 1; i < len(runes); i++ {
		if unicode.IsSpace(runes[i-1]) && strings.ContainsRune(".,;:!?", runes[i]) {
			anomalies++
		}
	}

	// a single letter split off a word: "J ohn"
	for i := 2; i+1 < len(runes); i++ {
		lone := runes[i-2]
		if !isASCIILetter(lone) || strings.ContainsRune("aAI", lone) {
			continue
		}
		if i >= 3 && isASCIILetter(runes[i-3]) {
			continue
		}
		if unicode.IsSpace(runes[i-1]) && isASCIILetter(runes[i]) && isASCIILetter(runes[i+1]) {
			anomalies++
		}
	}

	return math.Min(float64(anomalies)/math.Max(float64(byteLen)/50, 10), 1)
}

func charCorruption(runes []rune, byteLen int) float64 {
	pairs := []string{"|!", "()", "{}", "$@#"}
	count := 0
	for i := 1; i < len(runes); i++ {
		for _, set := range pairs {
			if strings.ContainsRune(set, runes[i-1]) && strings.ContainsRune(set, runes[i]) {
				count++
			}
		}
	}
	return math.Min(float64(count)/math.Max(float64(byteLen)/100, 5), 1)
}

// charEntropy is the Shannon entropy of the rune distribution normalized by the
// entropy of the 96 printable ASCII characters.
func charEntropy(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	sorted := slices.Clone(runes)
	slices.Sort(sorted)

	// counts in rune order so the float sum is reproducible
	var counts []int
	for i, r := range sorted {
		if i == 0 || r != sorted[i-1] {
			counts = append(counts, 0)
		}
		counts[len(counts)-1]++
	}
	total := float64(len(runes))
	h := 0.0
	for _, c := range counts {
		p := float64(c) / total
		h -= p * math.Log2(p)
	}
	return math.Min(h/math.Log2(96), 1)
}
