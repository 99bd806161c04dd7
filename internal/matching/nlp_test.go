package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

func reqTok(raw string) types.RequirementToken {
	return types.RequirementToken{Raw: raw, Normalized: raw}
}

func capTok(raw string) types.CapabilityToken {
	return types.CapabilityToken{Raw: raw, Normalized: raw}
}

func TestNLPMatcherFallbackExactTextIsPerfectMatch(t *testing.T) {
	m := NewNLPMatcher(NLPConfig{Domain: "manufacturing"}, nil)
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("cnc milling aluminum")}, []types.CapabilityToken{capTok("cnc milling aluminum")})
	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.Equal(t, types.QualityPerfect, results[0].Metadata.Quality)
}

func TestNLPMatcherDomainBoostLiftsSharedCategoryTerms(t *testing.T) {
	m := NewNLPMatcher(NLPConfig{Domain: "manufacturing", SimilarityThreshold: 0.7}, nil)
	withBoost := m.Match(context.Background(),
		[]types.RequirementToken{reqTok("precision milling service")},
		[]types.CapabilityToken{capTok("cnc milling capacity")})
	require.Len(t, withBoost, 1)
	assert.Greater(t, withBoost[0].Confidence, 0.0)
	assert.Contains(t, withBoost[0].Metadata.Reasons, "domain boost applied")
}

func TestNLPMatcherAbbreviationBridgeBoostsOverNoBridge(t *testing.T) {
	m := NewNLPMatcher(NLPConfig{Domain: "manufacturing"}, nil)

	bridged := m.Match(context.Background(), []types.RequirementToken{reqTok("pcb")}, []types.CapabilityToken{capTok("printed circuit board")})
	require.Len(t, bridged, 1)
	assert.Contains(t, bridged[0].Metadata.Reasons, "domain boost applied")

	unrelated := m.Match(context.Background(), []types.RequirementToken{reqTok("pcb")}, []types.CapabilityToken{capTok("sous vide cooking")})
	require.Len(t, unrelated, 1)
	assert.Greater(t, bridged[0].Confidence, unrelated[0].Confidence)
}

func TestNLPMatcherBelowThresholdIsNoMatch(t *testing.T) {
	m := NewNLPMatcher(NLPConfig{Domain: "manufacturing", SimilarityThreshold: 0.7}, nil)
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("cnc milling")}, []types.CapabilityToken{capTok("sous vide cooking")})
	require.Len(t, results, 1)
	assert.False(t, results[0].Matched)
}

func TestNLPMatcherContextCancellationStopsEarly(t *testing.T) {
	m := NewNLPMatcher(NLPConfig{Domain: "manufacturing"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := m.Match(ctx, []types.RequirementToken{reqTok("a"), reqTok("b")}, []types.CapabilityToken{capTok("a")})
	assert.Empty(t, results)
}

func TestQualityForSimilarityTiers(t *testing.T) {
	assert.Equal(t, types.QualityPerfect, qualityForSimilarity(0.95))
	assert.Equal(t, types.QualityHigh, qualityForSimilarity(0.85))
	assert.Equal(t, types.QualityMedium, qualityForSimilarity(0.75))
	assert.Equal(t, types.QualityLow, qualityForSimilarity(0.6))
	assert.Equal(t, types.QualityNoMatch, qualityForSimilarity(0.2))
}
