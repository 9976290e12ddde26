package majorfilter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequirements(t *testing.T) {
	reqs := ParseRequirements([]string{
		"信息资源管理（120503）",
		"",
		"  计算机科学与技术（ 080901 ）",
		"080902 软件工程",
		"信息资源管理（120503）",
		"工学 汉语言文学",
	})
	require.Len(t, reqs, 4)
	assert.Equal(t, Requirement{Raw: "信息资源管理（120503）", Name: "信息资源管理", Norm: "信息资源管理", Code: "120503"}, reqs[0])
	assert.Equal(t, "计算机科学与技术", reqs[1].Name)
	assert.Equal(t, "080901", reqs[1].Code)
	assert.Equal(t, "软件工程", reqs[2].Name)
	assert.Equal(t, "080902", reqs[2].Code)
	assert.Equal(t, "汉语言文学", reqs[3].Name)
	assert.Empty(t, reqs[3].Code)
}

func TestLoadRequirements(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "req.txt")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBF信息资源管理（120503）\r\n软件工程（080902）\r\n"), 0o644))
	reqs, err := LoadRequirements(path)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "信息资源管理", reqs[0].Name)
	assert.Equal(t, "080902", reqs[1].Code)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("\n \n"), 0o644))
	_, err = LoadRequirements(empty)
	assert.True(t, errors.Is(err, ErrEmptyRequirements))
	assert.True(t, IsConfigError(err))

	_, err = LoadRequirements(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestBestMatchTiers(t *testing.T) {
	reqs := ParseRequirements([]string{
		"信息资源管理（120503）",
		"计算机科学与技术（080901）",
		"软件工程（080902）",
	})
	tests := []struct {
		text  string
		name  string
		score float64
	}{
		{"信息资源管理（120503）", "信息资源管理", ScoreCodeMatch},
		{"信息 资源 管理", "信息资源管理", ScoreExactMatch},
		{"计算机科学", "计算机科学与技术", ScoreSubstringMatch},
		{"软件工程专业方向", "软件工程", ScoreSubstringMatch},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			req, score := BestMatch(tt.text, reqs)
			require.NotNil(t, req)
			assert.Equal(t, tt.name, req.Name)
			assert.Equal(t, tt.score, score)
		})
	}

	req, score := BestMatch("", reqs)
	assert.Nil(t, req)
	assert.Zero(t, score)
}

func TestBestMatchCodeBeatsExact(t *testing.T) {
	reqs := []Requirement{{Name: "信息资源管理", Norm: "信息资源管理", Code: "120503"}}
	req, score := BestMatch("信息资源管理（120503）", reqs)
	require.NotNil(t, req)
	assert.Equal(t, "120503", req.Code)
	assert.Equal(t, 1.0, score)
}

func TestBestMatchTieKeepsFirst(t *testing.T) {
	reqs := []Requirement{
		{Name: "甲", Norm: "工程", Code: "100001"},
		{Name: "乙", Norm: "工程", Code: "100002"},
	}
	req, score := BestMatch("工程", reqs)
	require.NotNil(t, req)
	assert.Equal(t, "甲", req.Name)
	assert.Equal(t, ScoreExactMatch, score)
}

func TestMatcherAnnotate(t *testing.T) {
	reqs := ParseRequirements([]string{"信息资源管理（120503）", "软件工程（080902）"})
	sim, err := NewSimilarity(StrategyRatio, 32)
	require.NoError(t, err)
	m := NewMatcher(reqs, sim).WithThreshold(0.8)

	block := NewBlock([]string{"PersonID", "Major"}, [][]string{
		{"1", "信息资源管理120503"},
		{"2", "汉语言文学"},
		{"3", "软件工程"},
	})
	hits := m.Annotate(block, "Major", 0.8)
	assert.Equal(t, []bool{true, false, true}, hits)

	names, _ := block.Column(ColMatchedName)
	codes, _ := block.Column(ColMatchedCode)
	flags, _ := block.Column(ColMatch)
	scores, _ := block.Column(ColScore)
	assert.Equal(t, []string{"信息资源管理", "", "软件工程"}, names)
	assert.Equal(t, []string{"120503", "", "080902"}, codes)
	assert.Equal(t, []string{"true", "false", "true"}, flags)
	assert.Equal(t, "1", scores[0])
	assert.Equal(t, "0.95", scores[2])
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.Equal(t, 1.0, Ratio("软件工程", "软件工程"))
	assert.InDelta(t, 2.0*5/13, Ratio("计算机科学", "计算机科学与技术"), 1e-9)

	quick := QuickRatio{}
	assert.InDelta(t, Ratio("abcd", "abdc"), quick.Score("abcd", "abdc", 0.1), 1e-9)
	assert.Less(t, quick.Score("abc", "xyzxyzxyz", 0.9), 0.9)

	_, err := NewSimilarity("levenshtein", 0)
	assert.Error(t, err)

	s, err := NewSimilarity(StrategyQuick, 0)
	require.NoError(t, err)
	assert.IsType(t, QuickRatio{}, s)
}

func TestCachedSimilarity(t *testing.T) {
	s, err := NewSimilarity(StrategyRatio, 2)
	require.NoError(t, err)
	cached, ok := s.(*cachedSimilarity)
	require.True(t, ok)

	first := cached.Score("计算机", "计算机科学", 0.8)
	assert.Equal(t, first, cached.Score("计算机", "计算机科学", 0.8))
	assert.Equal(t, 1, cached.Len())
	cached.Score("a", "b", 0.8)
	cached.Score("c", "d", 0.8)
	assert.Equal(t, 2, cached.Len())
}
