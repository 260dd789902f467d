package target

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// MatchThreshold is the minimum score a name match needs to be accepted.
const MatchThreshold = 0.3

// Score rates how well query refers to candidate, in [0, 1].
//
// Structural matches (substring, word prefix) always outrank typo matches:
// an edit-distance match is only considered when the strings are at least
// 60% similar and is then halved.
func Score(candidate, query string) float64 {
	c := strings.ToLower(candidate)
	q := strings.ToLower(query)

	if c == q {
		return 1.0
	}
	// An empty candidate would otherwise be "contained" in every query.
	if c == "" || q == "" {
		return 0
	}

	cLen := utf8.RuneCountInString(c)
	qLen := utf8.RuneCountInString(q)

	if strings.Contains(c, q) {
		return 0.8*(float64(qLen)/float64(cLen)) + 0.1
	}
	if strings.Contains(q, c) {
		return 0.6
	}
	for _, word := range strings.Fields(c) {
		if strings.HasPrefix(word, q) {
			return 0.7
		}
	}

	longest := max(cLen, qLen)
	distance := levenshtein.ComputeDistance(c, q)
	// similarity >= 0.6, kept in integers so the boundary is exact
	if 5*(longest-distance) < 3*longest {
		return 0
	}
	similarity := 1 - float64(distance)/float64(longest)
	return similarity * 0.5
}

// Match is a candidate picked by BestMatch together with its score.
type Match[T any] struct {
	Item  T
	Index int
	Score float64
}

// BestMatch returns the item whose name scores highest against query.
// Zero scores are discarded and the first of equally scored items wins.
func BestMatch[T any](query string, items []T, name func(T) string) (Match[T], bool) {
	var best Match[T]
	found := false
	for i, item := range items {
		score := Score(name(item), query)
		if score <= 0 {
			continue
		}
		if !found || score > best.Score {
			best = Match[T]{Item: item, Index: i, Score: score}
			found = true
		}
	}
	return best, found
}
