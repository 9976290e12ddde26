package majorfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCombineMode(t *testing.T) {
	for in, want := range map[string]CombineMode{"and": CombineAnd, " Or ": CombineOr, "WEIGHTED": CombineWeighted, "": CombineOr} {
		got, err := ParseCombineMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseCombineMode("XOR")
	assert.Error(t, err)
}

func TestCombineWeightedRawSum(t *testing.T) {
	results := []ConditionResult{
		{Hits: []bool{true}, Scores: []float64{1}},
		{Hits: []bool{false}, Scores: []float64{0}},
	}
	got := Combine(results, []float64{2, 1}, CombineWeighted, 0.5, 1)
	assert.Equal(t, []float64{2}, got.Total)
	assert.Equal(t, []bool{true}, got.Verdict)
	assert.Equal(t, []bool{true}, got.AnyHit)
	assert.Equal(t, []bool{false}, got.AllHit)

	got = Combine(results, []float64{2, 1}, CombineWeighted, 2.5, 1)
	assert.Equal(t, []bool{false}, got.Verdict)
}

func TestCombineModesIgnoreWeights(t *testing.T) {
	results := []ConditionResult{
		{Hits: []bool{true, true, false}, Scores: []float64{1, 1, 0}},
		{Hits: []bool{true, false, false}, Scores: []float64{1, 0.4, 0}},
	}
	and := Combine(results, []float64{0, 0}, CombineAnd, 99, 3)
	or := Combine(results, []float64{0, 0}, CombineOr, 99, 3)
	assert.Equal(t, []bool{true, false, false}, and.Verdict)
	assert.Equal(t, []bool{true, true, false}, or.Verdict)
	assert.Equal(t, []float64{0, 0, 0}, and.Total)

	for row := range and.Verdict {
		if and.Verdict[row] {
			assert.True(t, or.Verdict[row], "row %d", row)
		}
	}
}

func TestAllHitImpliesAnyHit(t *testing.T) {
	patterns := [][]bool{
		{true, true, true},
		{true, false, true},
		{false, false, false},
		{false, true, false},
	}
	var results []ConditionResult
	for _, hits := range patterns {
		scores := make([]float64, len(hits))
		for i, h := range hits {
			if h {
				scores[i] = 1
			}
		}
		results = append(results, ConditionResult{Hits: hits, Scores: scores})
	}
	for n := 1; n <= len(results); n++ {
		got := Combine(results[:n], nil, CombineOr, 0, 3)
		for row := 0; row < 3; row++ {
			if got.AllHit[row] {
				assert.True(t, got.AnyHit[row])
			}
		}
	}
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 0.1235, Round4(0.12346))
	assert.Equal(t, "0.6667", formatScore(2.0/3))
	assert.Equal(t, "1", formatScore(1))
	assert.Equal(t, "true", formatBool(true))
}
