package majorfilter

import (
	"regexp"
	"strings"
)

// codePattern matches classification codes such as 080914 or 080914TK.
var codePattern = regexp.MustCompile(`[0-9]{4,6}[A-Z]{0,3}`)

// ExtractCode returns the digits of the first classification code found in s,
// or "" when there is none.
func ExtractCode(s string) string {
	m := codePattern.FindString(s)
	if m == "" {
		return ""
	}
	return DigitsOnly(m)
}

// DigitsOnly strips every non-ASCII-digit character.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// ExtractCodes runs ExtractCode over a column.
func ExtractCodes(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = ExtractCode(v)
	}
	return out
}
