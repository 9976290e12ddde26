package majorfilter

import (
	"strings"
	"sync"
)

var (
	columnCandidatesMu sync.RWMutex
	majorCandidates    = defaultMajorCandidates()
)

func defaultMajorCandidates() []string {
	return []string{"Major", "专业", "专业名称", "所学专业", "major_name"}
}

// DefaultMajorCandidates returns the built-in header names tried when the
// configured major column is absent.
func DefaultMajorCandidates() []string {
	return cloneStrings(defaultMajorCandidates())
}

// SetMajorCandidates replaces the fallback header names. An empty list
// restores the defaults.
func SetMajorCandidates(candidates []string) {
	columnCandidatesMu.Lock()
	defer columnCandidatesMu.Unlock()
	if len(candidates) == 0 {
		majorCandidates = defaultMajorCandidates()
		return
	}
	majorCandidates = cloneStrings(candidates)
}

func getMajorCandidates() []string {
	columnCandidatesMu.RLock()
	defer columnCandidatesMu.RUnlock()
	return cloneStrings(majorCandidates)
}

// ResolveMajorColumn returns the header entry to use as the major column:
// the configured name if present (ignoring case), otherwise the first
// candidate found, otherwise "".
func ResolveMajorColumn(header []string, configured string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		if idx := findColumn(header, []string{configured}); idx >= 0 {
			return header[idx]
		}
	}
	if idx := findColumn(header, getMajorCandidates()); idx >= 0 {
		return header[idx]
	}
	return ""
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
