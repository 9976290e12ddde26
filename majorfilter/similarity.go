package majorfilter

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity scores two normalized strings in [0, 1]. threshold is the hit
// boundary the caller will apply; strategies may use it to skip work but must
// never change which side of the boundary a pair falls on.
type Similarity interface {
	Score(a, b string, threshold float64) float64
}

// Similarity strategy names accepted by NewSimilarity.
const (
	StrategyRatio = "ratio"
	StrategyQuick = "quick"
)

// SequenceRatio is the longest-matching-blocks ratio over characters.
type SequenceRatio struct{}

// Score ignores threshold.
func (SequenceRatio) Score(a, b string, _ float64) float64 {
	return Ratio(a, b)
}

// QuickRatio rejects pairs whose cheap upper bounds already fall below the
// threshold and only computes the full ratio for the rest. Rejected pairs
// report the upper bound, so scores below the threshold are approximate.
type QuickRatio struct{}

func (QuickRatio) Score(a, b string, threshold float64) float64 {
	m := difflib.NewMatcher(splitChars(a), splitChars(b))
	if ub := m.RealQuickRatio(); ub < threshold {
		return ub
	}
	if ub := m.QuickRatio(); ub < threshold {
		return ub
	}
	return m.Ratio()
}

// Ratio computes 2*M/T where M is the number of characters in matching
// blocks and T the combined length. Two empty strings score 1.
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// NewSimilarity returns the named strategy, memoized when cacheSize > 0.
func NewSimilarity(name string, cacheSize int) (Similarity, error) {
	var s Similarity
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyRatio:
		s = SequenceRatio{}
	case StrategyQuick:
		s = QuickRatio{}
	default:
		return nil, fmt.Errorf("unknown fuzzy strategy %q", name)
	}
	if cacheSize > 0 {
		return newCachedSimilarity(s, cacheSize)
	}
	return s, nil
}
