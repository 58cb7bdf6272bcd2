package engine

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/lazypower/nudge/internal/store"
)

// MatchThreshold is the minimum score FuzzyMatch accepts.
const MatchThreshold = 30

// FuzzyMatch returns the item whose title best matches query, or nil when
// nothing scores at least MatchThreshold. Ties go to the earliest item, so
// callers pass items in the order they want preferred.
func FuzzyMatch(query string, items []store.Item) *store.Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	qTokens := tokenSet(q)

	best, bestScore := -1, 0
	for i := range items {
		score := matchScore(q, qTokens, strings.ToLower(items[i].Title))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < MatchThreshold {
		return nil
	}
	return &items[best]
}

// matchScore is 100 for substring containment in either direction, else the
// share of query tokens found in the title scaled to 80.
func matchScore(q string, qTokens map[string]bool, title string) int {
	if title == "" {
		return 0
	}
	if strings.Contains(title, q) || strings.Contains(q, title) {
		return 100
	}
	if len(qTokens) == 0 {
		return 0
	}
	tTokens := tokenSet(title)
	overlap := 0
	for w := range qTokens {
		if tTokens[w] {
			overlap++
		}
	}
	return int(math.Round(float64(overlap) / float64(len(qTokens)) * 80))
}

// tokenSet splits on whitespace and keeps tokens longer than two characters.
func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		if utf8.RuneCountInString(w) > 2 {
			set[w] = true
		}
	}
	return set
}
