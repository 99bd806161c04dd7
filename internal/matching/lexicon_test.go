package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLexiconForUnknownDomainIsEmpty(t *testing.T) {
	lex := lexiconFor("aerospace")
	enhanced, expanded := lex.enhance("pcb assembly")
	assert.False(t, expanded)
	assert.Equal(t, "pcb assembly", enhanced)
}

func TestEnhanceExpandsAbbreviationAndAppendsAnchors(t *testing.T) {
	lex := lexiconFor("manufacturing")
	enhanced, expanded := lex.enhance("pcb assembly")
	assert.True(t, expanded)
	assert.Contains(t, enhanced, "printed circuit board electronics manufacturing")
	assert.Contains(t, enhanced, "manufacturing process")
}

func TestEnhanceNoMatchLeavesTextUnexpanded(t *testing.T) {
	lex := lexiconFor("manufacturing")
	enhanced, expanded := lex.enhance("custom widget fabrication")
	assert.False(t, expanded)
	assert.Equal(t, "custom widget fabrication", enhanced)
}

func TestSharedCategoryDetectsCategoryOverlap(t *testing.T) {
	lex := lexiconFor("manufacturing")
	assert.True(t, lex.sharedCategory("cnc milling of aluminum", "precision turning on a lathe"))
	assert.False(t, lex.sharedCategory("cnc milling of aluminum", "sous vide poaching"))
}

func TestAbbreviationBridgesDetectsCrossReference(t *testing.T) {
	lex := lexiconFor("manufacturing")
	assert.True(t, lex.abbreviationBridges("pcb assembly", "printed circuit board electronics manufacturing line"))
	assert.False(t, lex.abbreviationBridges("cnc milling", "sous vide cooking"))
}

func TestAbbreviationBridgesDetectsPlainPhraseShorterThanExpansion(t *testing.T) {
	lex := lexiconFor("manufacturing")
	// "printed circuit board" is the realistic capability phrase, not the
	// full multi-word abbreviation expansion, so it never contains the
	// expansion verbatim; the bridge must still fire on token overlap.
	assert.True(t, lex.abbreviationBridges("pcb", "printed circuit board"))
}

func TestPhraseOverlapsRequiresMeaningfulTokenSharing(t *testing.T) {
	assert.True(t, phraseOverlaps("printed circuit board", "printed circuit board electronics manufacturing"))
	assert.False(t, phraseOverlaps("sous vide cooking", "printed circuit board electronics manufacturing"))
}
