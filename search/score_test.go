package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierScore(t *testing.T) {
	tests := []struct {
		name  string
		token string
		title string
		want  float64
	}{
		{"exact", "loom", "Loom", 1.0},
		{"exact case insensitive", "LOOM", "loom", 1.0},
		{"compound prefix camel case", "loom", "LoomLite", 0.9},
		{"compound prefix separator", "loom", "Loom-Lite", 0.9},
		{"whole word", "loom", "The Loom Framework", 0.7},
		{"word prefix", "pillar", "Pillars", 0.6},
		{"fuzzy edit distance", "lom", "loom", 0.3},
		{"no match", "xyz", "loom", 0.0},
		{"below min term length", "l", "Loom", 0.0},
		{"empty token", "", "Loom", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, TierScore(tt.token, tt.title), 1e-9)
		})
	}
}

func TestTierScorePrefixInsideWordIsNotCompound(t *testing.T) {
	// "pillar" is a prefix of "Pillars" but "s" continues the same word,
	// so this is the word-prefix tier, not the compound-prefix tier.
	assert.InDelta(t, 0.6, TierScore("pillar", "Pillars"), 1e-9)
	assert.InDelta(t, 0.9, TierScore("pillar", "PillarStone"), 1e-9)
}

func TestQueryScoreSingleTerm(t *testing.T) {
	// Single-term queries pass the tier score through without the
	// coverage boost.
	assert.InDelta(t, 0.9, QueryScore("loom", "LoomLite"), 1e-9)
	assert.InDelta(t, 1.0, QueryScore("loom", "Loom"), 1e-9)
}

func TestQueryScoreFullCoverageBoost(t *testing.T) {
	// "loom" hits the compound-prefix tier (0.9), "financials" the fuzzy
	// tier against "financial" (0.3). Full coverage boosts the 0.6 average
	// by 1.5.
	score := QueryScore("loom financials", "Loom Financial Model")
	assert.InDelta(t, 0.9, score, 1e-9)
}

func TestQueryScorePartialCoveragePenalty(t *testing.T) {
	// Only "loom" matches (0.9): avg 0.45 scaled by 1/2 coverage.
	score := QueryScore("loom financials", "Loom Framework")
	assert.InDelta(t, 0.225, score, 1e-9)

	full := QueryScore("loom financials", "Loom Financial Model")
	assert.Greater(t, full, score, "full coverage must outrank partial")
}

func TestQueryScoreBoostClampedToOne(t *testing.T) {
	assert.InDelta(t, 1.0, QueryScore("loom framework", "Loom Framework"), 1e-9)
}

func TestQueryScoreShortTermsCountTowardCoverage(t *testing.T) {
	// "a" is below the minimum term length: it scores 0 but still counts
	// in the total, so coverage is 1/2.
	score := QueryScore("a loom", "Loom")
	assert.InDelta(t, 0.25, score, 1e-9)
}

func TestQueryScoreEmptyQuery(t *testing.T) {
	assert.Zero(t, QueryScore("", "Loom"))
	assert.Zero(t, QueryScore("   ", "Loom"))
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"loom", "financial", "model"}, splitWords("Loom Financial Model"))
	assert.Equal(t, []string{"loom", "lite", "v2"}, splitWords("Loom-Lite (v2)"))
	assert.Empty(t, splitWords("  ...  "))
}
