package majorfilter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"yashubustudio/majorfilter/internal/sheetio"
)

// ConditionHeader lists the columns a condition file must carry.
var ConditionHeader = []string{"column", "type", "operator", "value", "threshold", "priority", "weight", "options"}

// LoadConditions reads a csv or xlsx condition file. Any unreadable file,
// missing header column, invalid row or empty result is an error.
func LoadConditions(path string) ([]Condition, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("condition file %s: %w", path, err)
	}
	header, rows, err := sheetio.ReadAll(path)
	if err != nil {
		return nil, fmt.Errorf("read condition file %s: %w", filepath.Base(path), err)
	}
	cols := make(map[string]int, len(ConditionHeader))
	for _, name := range ConditionHeader {
		idx := findColumn(header, []string{name})
		if idx < 0 {
			return nil, fmt.Errorf("condition file %s: %w: %s", filepath.Base(path), ErrMissingHeader, name)
		}
		cols[name] = idx
	}
	out := make([]Condition, 0, len(rows))
	for i, row := range rows {
		get := func(name string) string {
			idx := cols[name]
			if idx >= len(row) {
				return ""
			}
			return cleanCell(row[idx])
		}
		cond, err := NewCondition(i+2,
			get("column"), get("type"), get("operator"), get("value"),
			get("threshold"), get("priority"), get("weight"), get("options"))
		if err != nil {
			return nil, fmt.Errorf("condition file %s: %w", filepath.Base(path), err)
		}
		out = append(out, cond)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("condition file %s: %w", filepath.Base(path), ErrNoConditions)
	}
	return out, nil
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		for _, cand := range candidates {
			if strings.EqualFold(cleanCell(col), cand) {
				return i
			}
		}
	}
	return -1
}

// IsConfigError reports whether err belongs to the fatal configuration class:
// unreadable or malformed condition and requirements input.
func IsConfigError(err error) bool {
	var ce *ConditionError
	return errors.Is(err, ErrNoConditions) ||
		errors.Is(err, ErrEmptyRequirements) ||
		errors.Is(err, ErrMissingHeader) ||
		errors.As(err, &ce)
}
