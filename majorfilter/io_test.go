package majorfilter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yashubustudio/majorfilter/internal/sheetio"
)

func writeConditionCSV(t *testing.T, name string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, sheetio.WriteCSV(path, ConditionHeader, rows))
	return path
}

func TestLoadConditionsCSV(t *testing.T) {
	path := writeConditionCSV(t, "conds.csv", [][]string{
		{" Major ", "text", "contains", "计算机", "", "1", "", "ignore_case"},
		{"Score", "number", "between", "60-100", "", "", "2", ""},
		{"Major", "fuzzy", "similar", "软件工程", "85%", "", "", "code_prefer=1"},
	})
	conds, err := LoadConditions(path)
	require.NoError(t, err)
	require.Len(t, conds, 3)
	assert.Equal(t, "Major", conds[0].Column)
	assert.True(t, conds[0].Options.IgnoreCase)
	assert.Equal(t, 2.0, conds[1].Weight)
	assert.Equal(t, "85%", conds[2].Threshold)
	assert.True(t, conds[2].Options.CodePrefer)
}

func TestLoadConditionsXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conds.xlsx")
	require.NoError(t, sheetio.WriteXLSX(path, ConditionHeader, [][]string{
		{"Major", "code", "equals", "080914TK", "", "", "", ""},
	}, nil))
	conds, err := LoadConditions(path)
	require.NoError(t, err)
	require.Len(t, conds, 1)
	assert.Equal(t, TypeCode, conds[0].Type)
	assert.Equal(t, "080914TK", conds[0].Value)
}

func TestLoadConditionsErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConditions(filepath.Join(t.TempDir(), "none.csv"))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})
	t.Run("missing header", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, sheetio.WriteCSV(path, []string{"column", "type", "operator", "value"}, [][]string{{"Major", "text", "equals", "x"}}))
		_, err := LoadConditions(path)
		assert.True(t, errors.Is(err, ErrMissingHeader))
		assert.Contains(t, err.Error(), "threshold")
	})
	t.Run("no rows", func(t *testing.T) {
		_, err := LoadConditions(writeConditionCSV(t, "empty.csv", nil))
		assert.True(t, errors.Is(err, ErrNoConditions))
	})
	t.Run("bad row", func(t *testing.T) {
		path := writeConditionCSV(t, "row.csv", [][]string{
			{"Major", "text", "equals", "x", "", "", "", ""},
			{"Major", "date", "equals", "x", "", "", "", ""},
		})
		_, err := LoadConditions(path)
		var ce *ConditionError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, 3, ce.Row)
	})
}
