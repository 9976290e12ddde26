package majorfilter

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"yashubustudio/majorfilter/internal/sheetio"
)

// Requirement is one catalog entry for the legacy name matcher.
type Requirement struct {
	Raw  string `json:"raw"`
	Name string `json:"name"`
	Norm string `json:"norm"`
	Code string `json:"code"`
}

// requirementShape matches "<name>（<code>）" with full-width parentheses.
var requirementShape = regexp.MustCompile(`^(.*?)（\s*([0-9]{4,6}[A-Z]{0,3})\s*）`)

// ParseRequirements builds a catalog from raw lines. Blank lines are skipped
// and entries with the same (normalized name, code) collapse to the first.
func ParseRequirements(lines []string) []Requirement {
	out := make([]Requirement, 0, len(lines))
	type key struct{ norm, code string }
	seen := make(map[key]struct{})
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		var name, code string
		if m := requirementShape.FindStringSubmatch(line); m != nil {
			name = strings.TrimSpace(m[1])
			code = DigitsOnly(m[2])
		} else {
			fields := strings.Fields(line)
			name = fields[len(fields)-1]
			code = ExtractCode(line)
		}
		if name == "" {
			continue
		}
		req := Requirement{Raw: raw, Name: name, Norm: NormalizeKey(name), Code: code}
		k := key{req.Norm, req.Code}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, req)
	}
	return out
}

// LoadRequirements reads a requirements file (UTF-8 or GBK) and parses it.
// An empty catalog is an error.
func LoadRequirements(path string) ([]Requirement, error) {
	lines, err := sheetio.ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("read requirements %s: %w", filepath.Base(path), err)
	}
	reqs := ParseRequirements(lines)
	if len(reqs) == 0 {
		return nil, fmt.Errorf("requirements %s: %w", filepath.Base(path), ErrEmptyRequirements)
	}
	return reqs, nil
}
