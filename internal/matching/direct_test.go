package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

func TestDirectMatcherExactMatchIsPerfect(t *testing.T) {
	m := NewDirectMatcher(DirectConfig{})
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("cnc milling")}, []types.CapabilityToken{capTok("cnc milling")})
	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.Equal(t, 1.0, results[0].Confidence)
	assert.Equal(t, types.QualityPerfect, results[0].Metadata.Quality)
}

func TestDirectMatcherCaseDifferenceOnlyIsCaseDiff(t *testing.T) {
	m := NewDirectMatcher(DirectConfig{})
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("CNC milling")}, []types.CapabilityToken{capTok("cnc milling")})
	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.Equal(t, 0.95, results[0].Confidence)
	assert.Equal(t, types.QualityCaseDiff, results[0].Metadata.Quality)
}

func TestDirectMatcherWhitespaceDifferenceOnlyIsWhitespaceDiff(t *testing.T) {
	m := NewDirectMatcher(DirectConfig{})
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("CNC  milling")}, []types.CapabilityToken{capTok("CNC milling")})
	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.Equal(t, 0.9, results[0].Confidence)
	assert.Equal(t, types.QualityWhitespaceDiff, results[0].Metadata.Quality)
}

func TestDirectMatcherSameTaxonomyNormalizedFormIsPerfect(t *testing.T) {
	m := NewDirectMatcher(DirectConfig{})
	req := types.RequirementToken{Raw: "CNC Milling", Normalized: "cnc_milling"}
	cap_ := types.CapabilityToken{Raw: "Computer Numerical Control Milling", Normalized: "cnc_milling"}
	results := m.Match(context.Background(), []types.RequirementToken{req}, []types.CapabilityToken{cap_})
	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.Equal(t, 1.0, results[0].Confidence)
	assert.Equal(t, types.QualityPerfect, results[0].Metadata.Quality)
}

func TestDirectMatcherNearMissEditDistance(t *testing.T) {
	m := NewDirectMatcher(DirectConfig{NearMissThreshold: 2})
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("cnc miling")}, []types.CapabilityToken{capTok("cnc milling")})
	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.Equal(t, types.QualityNearMiss, results[0].Metadata.Quality)
}

func TestDirectMatcherUnrelatedTextIsNoMatch(t *testing.T) {
	m := NewDirectMatcher(DirectConfig{})
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("cnc milling")}, []types.CapabilityToken{capTok("sous vide cooking")})
	require.Len(t, results, 1)
	assert.False(t, results[0].Matched)
	assert.Equal(t, types.QualityNoMatch, results[0].Metadata.Quality)
}

func TestDirectMatcherContextCancellationStopsEarly(t *testing.T) {
	m := NewDirectMatcher(DirectConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := m.Match(ctx, []types.RequirementToken{reqTok("a"), reqTok("b")}, []types.CapabilityToken{capTok("a")})
	assert.Empty(t, results)
}
