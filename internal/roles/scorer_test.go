package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScorerWordBoundaries(t *testing.T) {
	scorer := NewScorer(testLexicon(t))

	// "ui" must not fire inside unrelated words like "build".
	table := scorer.Score("we will build services")
	assert.Zero(t, table["Client"])

	table = scorer.Score("a clean ui for the dashboard")
	assert.InDelta(t, 2, table["Client"], 1e-9)
}

func TestScorerCountsEachFeatureOnce(t *testing.T) {
	scorer := NewScorer(testLexicon(t))

	table := scorer.Score("api api api and one database")
	assert.InDelta(t, 3, table["Server"], 1e-9)
}

func TestScorerCaseInsensitive(t *testing.T) {
	scorer := NewScorer(testLexicon(t))

	table := scorer.Score("expose an API over the DATABASE")
	assert.InDelta(t, 3, table["Server"], 1e-9)
}

func TestScorerEmptyText(t *testing.T) {
	lex := testLexicon(t)
	table := NewScorer(lex).Score("")

	require.Len(t, table, 3)
	for _, name := range lex.Roles() {
		assert.Zero(t, table[name])
	}
}

func TestScorerIsPure(t *testing.T) {
	scorer := NewScorer(testLexicon(t))

	first := scorer.Score("api and ui")
	second := scorer.Score("api and ui")
	assert.Equal(t, first, second)
}
