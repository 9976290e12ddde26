package majorfilter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CombineMode selects how per-condition results merge into a row verdict.
type CombineMode string

const (
	// CombineAnd requires every condition to hit.
	CombineAnd CombineMode = "AND"
	// CombineOr requires at least one condition to hit.
	CombineOr CombineMode = "OR"
	// CombineWeighted compares the raw weighted score sum to a threshold.
	CombineWeighted CombineMode = "WEIGHTED"
)

// ParseCombineMode accepts AND, OR or WEIGHTED in any case.
func ParseCombineMode(s string) (CombineMode, error) {
	switch m := CombineMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case CombineAnd, CombineOr, CombineWeighted:
		return m, nil
	case "":
		return CombineOr, nil
	}
	return "", fmt.Errorf("unknown combine mode %q", s)
}

// ConditionResult is one condition's outcome over a block.
type ConditionResult struct {
	Hits   []bool
	Scores []float64
}

func newConditionResult(n int) ConditionResult {
	return ConditionResult{Hits: make([]bool, n), Scores: make([]float64, n)}
}

// Combined holds the per-row merge of every condition.
type Combined struct {
	AnyHit  []bool
	AllHit  []bool
	Total   []float64
	Verdict []bool
}

// Combine merges condition results for n rows. weights[i] applies to
// results[i]. AND and OR ignore weights and threshold; the weighted total is
// still computed for audit.
func Combine(results []ConditionResult, weights []float64, mode CombineMode, threshold float64, n int) Combined {
	out := Combined{
		AnyHit:  make([]bool, n),
		AllHit:  make([]bool, n),
		Total:   make([]float64, n),
		Verdict: make([]bool, n),
	}
	for row := 0; row < n; row++ {
		out.AllHit[row] = true
	}
	for i, res := range results {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		for row := 0; row < n; row++ {
			hit := row < len(res.Hits) && res.Hits[row]
			out.AnyHit[row] = out.AnyHit[row] || hit
			out.AllHit[row] = out.AllHit[row] && hit
			if row < len(res.Scores) {
				out.Total[row] += res.Scores[row] * w
			}
		}
	}
	for row := 0; row < n; row++ {
		switch mode {
		case CombineAnd:
			out.Verdict[row] = out.AllHit[row]
		case CombineWeighted:
			out.Verdict[row] = out.Total[row] >= threshold
		default:
			out.Verdict[row] = out.AnyHit[row]
		}
	}
	return out
}

// Round4 rounds half away from zero to four decimals.
func Round4(f float64) float64 {
	return math.Round(f*1e4) / 1e4
}

func formatScore(f float64) string {
	return strconv.FormatFloat(Round4(f), 'f', -1, 64)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}
