package majorfilter

import "strings"

// Tier scores used by BestMatch ahead of the similarity ratio.
const (
	ScoreCodeMatch      = 1.0
	ScoreExactMatch     = 0.95
	ScoreSubstringMatch = 0.9
)

// Matcher finds the best catalog entry for free text.
type Matcher struct {
	reqs      []Requirement
	sim       Similarity
	threshold float64
}

// NewMatcher wraps a catalog. A nil similarity falls back to SequenceRatio.
func NewMatcher(reqs []Requirement, sim Similarity) *Matcher {
	if sim == nil {
		sim = SequenceRatio{}
	}
	return &Matcher{reqs: reqs, sim: sim}
}

// WithThreshold sets the hit boundary passed to the similarity strategy.
func (m *Matcher) WithThreshold(threshold float64) *Matcher {
	m.threshold = threshold
	return m
}

// BestMatch scores text against every entry and returns the highest scoring
// one. Ties keep the earlier entry. Empty text returns (nil, 0).
func (m *Matcher) BestMatch(text string) (*Requirement, float64) {
	if text == "" {
		return nil, 0
	}
	norm := NormalizeKey(text)
	code := ExtractCode(text)
	var best *Requirement
	bestScore := 0.0
	for i := range m.reqs {
		r := &m.reqs[i]
		var score float64
		switch {
		case code != "" && r.Code != "" && code == r.Code:
			score = ScoreCodeMatch
		case norm == r.Norm:
			score = ScoreExactMatch
		case norm != "" && r.Norm != "" && (strings.Contains(r.Norm, norm) || strings.Contains(norm, r.Norm)):
			score = ScoreSubstringMatch
		default:
			score = m.sim.Score(norm, r.Norm, m.threshold)
		}
		if score > bestScore {
			best, bestScore = r, score
		}
	}
	return best, bestScore
}

// BestMatch is a convenience wrapper using the reference ratio.
func BestMatch(text string, reqs []Requirement) (*Requirement, float64) {
	return NewMatcher(reqs, nil).BestMatch(text)
}

// Legacy matcher result columns.
const (
	ColMatch       = "_match"
	ColMatchedName = "_matched_name"
	ColMatchedCode = "_matched_code"
	ColScore       = "_score"
)

// Annotate runs BestMatch over column and writes the legacy result columns
// into block. A row matches when an entry was found with score >= threshold.
// The returned mask marks matching rows.
func (m *Matcher) Annotate(block *Block, column string, threshold float64) []bool {
	values, _ := block.Column(column)
	n := len(values)
	hits := make([]bool, n)
	flags := make([]string, n)
	names := make([]string, n)
	codes := make([]string, n)
	scores := make([]string, n)
	for i, v := range values {
		req, score := m.BestMatch(v)
		if req != nil && score >= threshold {
			hits[i] = true
			names[i] = req.Name
			codes[i] = req.Code
		}
		flags[i] = formatBool(hits[i])
		scores[i] = formatScore(score)
	}
	block.SetColumn(ColMatch, flags)
	block.SetColumn(ColMatchedName, names)
	block.SetColumn(ColMatchedCode, codes)
	block.SetColumn(ColScore, scores)
	return hits
}
