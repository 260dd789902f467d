package target

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_IdenticalStringsScoreOne(t *testing.T) {
	for _, s := range []string{"", "Backend", "api refactor", "Über Projekt", "x"} {
		assert.Equal(t, 1.0, Score(s, s), "Score(%q, %q)", s, s)
	}
}

func TestScore_CaseInsensitive(t *testing.T) {
	assert.Equal(t, 1.0, Score("Backend", "BACKEND"))
	assert.Equal(t, 0.6, Score("API", "the api service"))
}

func TestScore_NotSymmetric(t *testing.T) {
	longer := Score("backend api", "backend")
	shorter := Score("backend", "backend api")

	assert.InDelta(t, 0.8*7.0/11.0+0.1, longer, 1e-9)
	assert.Equal(t, 0.6, shorter)
	assert.NotEqual(t, longer, shorter)
}

func TestScore_SubstringRewardsCoverage(t *testing.T) {
	short := Score("frontend", "front")
	long := Score("frontend", "fronten")

	assert.Greater(t, long, short)
	assert.Greater(t, short, 0.1)
	assert.LessOrEqual(t, long, 0.9)
}

func TestScore_TypoIsDownWeighted(t *testing.T) {
	got := Score("Backend", "backed")
	assert.InDelta(t, (1-1.0/7.0)*0.5, got, 1e-9)
	assert.GreaterOrEqual(t, got, MatchThreshold)
}

func TestScore_WordPrefixFallsUnderSubstring(t *testing.T) {
	// "bug" prefixes the word "bug" but the substring rule fires first.
	assert.InDelta(t, 0.8*3.0/9.0+0.1, Score("login bug", "bug"), 1e-9)
	assert.NotEqual(t, 0.7, Score("api fixes", "fix"))
}

func TestScore_UnrelatedScoresZero(t *testing.T) {
	assert.Equal(t, 0.0, Score("Backend", "xyz"))
	assert.Equal(t, 0.0, Score("Mobile", "database"))
}

func TestScore_EmptyCandidateNeverMatches(t *testing.T) {
	assert.Equal(t, 0.0, Score("", "api"))
	assert.Equal(t, 0.0, Score("Backend", ""))
}

func TestScore_SimilarityGateIsInclusive(t *testing.T) {
	// 2 edits over 5 runes: similarity exactly 0.6
	assert.InDelta(t, 0.3, Score("abcde", "abcxy"), 1e-12)
	// 4 edits over 5 runes: similarity 0.2
	assert.Equal(t, 0.0, Score("abcde", "axyzw"))
}

func TestScore_EditDistanceCountsRunes(t *testing.T) {
	tests := []struct {
		candidate, query string
		want             float64
	}{
		{"über", "uber", (1 - 1.0/4.0) * 0.5},
		{"Backend", "backed", (1 - 1.0/7.0) * 0.5},
		{"flaw", "lawn", 0},
		{"kitten", "sitting", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Score(tt.candidate, tt.query), 1e-12, "Score(%q, %q)", tt.candidate, tt.query)
	}
}

func TestBestMatch_PicksHighestScore(t *testing.T) {
	names := []string{"Mobile", "Backend", "Backend API"}

	m, ok := BestMatch("backend", names, func(s string) string { return s })
	require.True(t, ok)
	assert.Equal(t, "Backend", m.Item)
	assert.Equal(t, 1, m.Index)
	assert.Equal(t, 1.0, m.Score)
}

func TestBestMatch_FirstWinsTies(t *testing.T) {
	names := []string{"docs site", "docs tool"}

	m, ok := BestMatch("docs", names, func(s string) string { return s })
	require.True(t, ok)
	assert.Equal(t, "docs site", m.Item)
}

func TestBestMatch_NeverReturnsZeroScore(t *testing.T) {
	names := []string{"alpha", "beta", ""}

	_, ok := BestMatch("zzzzzz", names, func(s string) string { return s })
	assert.False(t, ok)

	_, ok = BestMatch("anything", []string(nil), func(s string) string { return s })
	assert.False(t, ok)
}

func TestBestMatch_ScoreAlwaysPositive(t *testing.T) {
	names := []string{"Backend", "Frontend", "Mobile", "", "Data Pipeline"}
	for _, q := range []string{"back", "end", "mobil", "pipe", "q", strings.Repeat("z", 20)} {
		if m, ok := BestMatch(q, names, func(s string) string { return s }); ok {
			assert.Greater(t, m.Score, 0.0, "query %q", q)
		}
	}
}
