// Package suggest finds close matches for misspelled names, such as node
// names, resource kinds, blueprint names or configuration keys.
package suggest

import (
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
)

// String returns the candidate closest to want, or an empty string if no
// candidate is close enough. Case is ignored when measuring the distance; an
// exact match always wins, ties go to the earliest candidate.
//
// A candidate is close enough when at most one in five characters differ,
// with a minimum of one. The heuristic may change.
func String(want string, candidates []string) string {
	limit := len(want) / 5
	if limit < 1 {
		limit = 1
	}

	lower := strings.ToLower(want)
	best, bestDist := "", limit+1
	for _, c := range candidates {
		if c == want {
			return c
		}
		if d := levenshtein.Distance(lower, strings.ToLower(c), nil); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Hint formats a suggestion to be appended to an error message. An empty
// suggestion returns an empty string.
func Hint(suggestion string) string {
	if suggestion == "" {
		return ""
	}
	return fmt.Sprintf("; did you mean %q?", suggestion)
}
