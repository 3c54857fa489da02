// Package suppress implements the allocation-free `?`/`*` glob matcher used
// to filter race/anomaly reports against host-provided suppression patterns
// before they reach Report().
//
// No glob-matching library appears anywhere in the example pack this
// codebase was grounded on (see DESIGN.md), so this is a deliberate
// standard-library-only component: a small backtracking matcher operating
// directly on byte slices, invoked from the hot-path anomaly reporter and
// therefore required to perform zero allocations on a match attempt.
package suppress

// Match reports whether name matches pattern, where '*' matches any run of
// characters (including none) and '?' matches exactly one character.
//
// This is a classic backtracking glob match (two-pointer with a
// most-recent-star checkpoint), operating on the input strings directly —
// no splitting, no regexp compilation, no allocation.
func Match(pattern, name string) bool {
	var pIdx, nIdx int
	var starIdx, starMatch int = -1, 0

	for nIdx < len(name) {
		switch {
		case pIdx < len(pattern) && pattern[pIdx] == '?':
			pIdx++
			nIdx++
		case pIdx < len(pattern) && pattern[pIdx] == name[nIdx]:
			pIdx++
			nIdx++
		case pIdx < len(pattern) && pattern[pIdx] == '*':
			starIdx = pIdx
			starMatch = nIdx
			pIdx++
		case starIdx != -1:
			pIdx = starIdx + 1
			starMatch++
			nIdx = starMatch
		default:
			return false
		}
	}

	for pIdx < len(pattern) && pattern[pIdx] == '*' {
		pIdx++
	}

	return pIdx == len(pattern)
}

// Set is an ordered list of suppression patterns, matched in order; the
// first match wins. A zero-value Set suppresses nothing.
type Set struct {
	patterns []string
}

// NewSet builds a Set from the given patterns.
func NewSet(patterns []string) *Set {
	return &Set{patterns: patterns}
}

// Suppressed reports whether qualifiedName (typically "package.Function")
// matches any pattern in the set.
func (s *Set) Suppressed(qualifiedName string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.patterns {
		if Match(p, qualifiedName) {
			return true
		}
	}
	return false
}
