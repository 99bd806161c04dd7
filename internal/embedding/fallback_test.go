package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSimilarityIdenticalStrings(t *testing.T) {
	assert.Equal(t, 1.0, TokenSimilarity("cnc milling aluminum", "cnc milling aluminum"))
}

func TestTokenSimilarityDisjointStrings(t *testing.T) {
	assert.Equal(t, 0.0, TokenSimilarity("cnc milling", "sous vide cooking"))
}

func TestTokenSimilarityPartialOverlap(t *testing.T) {
	sim := TokenSimilarity("cnc milling aluminum", "cnc milling steel")
	assert.Greater(t, sim, 0.0)
	assert.Less(t, sim, 1.0)
}

func TestTokenSimilarityEmptyInputs(t *testing.T) {
	assert.Equal(t, 0.0, TokenSimilarity("", ""))
	assert.Equal(t, 0.0, TokenSimilarity("cnc", ""))
}
