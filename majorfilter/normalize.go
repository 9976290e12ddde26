package majorfilter

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// widthFolder maps full-width ASCII variants and the ideographic space onto
// their half-width forms.
var widthFolder = runes.Map(func(r rune) rune {
	switch {
	case r == 0x3000:
		return ' '
	case r >= 0xFF01 && r <= 0xFF5E:
		return r - 0xFEE0
	}
	return r
})

// keyFilter drops everything outside [0-9a-z] and CJK unified ideographs.
var keyFilter = runes.Remove(runes.Predicate(func(r rune) bool {
	switch {
	case r >= '0' && r <= '9', r >= 'a' && r <= 'z':
		return false
	case r >= 0x4E00 && r <= 0x9FFF:
		return false
	}
	return true
}))

// FoldWidth converts full-width characters to half-width.
func FoldWidth(s string) string {
	out, _, err := transform.String(widthFolder, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeText folds width and case, trims, and collapses internal whitespace
// runs to a single space. Word boundaries survive, so it is the form used for
// substring and equality conditions.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(FoldWidth(s)))
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// NormalizeKey is the aggressive form: whitespace and every character other
// than ASCII digits, lowercase letters and CJK ideographs are removed.
func NormalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(FoldWidth(s)))
	out, _, err := transform.String(keyFilter, s)
	if err != nil {
		return ""
	}
	return out
}
