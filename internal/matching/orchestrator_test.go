package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpfulengineering/ome-matching-core/internal/config"
	"github.com/helpfulengineering/ome-matching-core/internal/provenance"
	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

func directOnlyLayers() map[types.LayerType]Layer {
	return map[types.LayerType]Layer{
		types.LayerDirect: WrapDirect(NewDirectMatcher(DirectConfig{})),
	}
}

func TestOrchestratorParallelStrategyNormalizesResults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Strategy = config.StrategyParallel
	tracker := provenance.NewTracker()
	orch := NewOrchestrator(cfg, directOnlyLayers(), tracker)

	report, err := orch.Run(context.Background(), []types.RequirementToken{reqTok("cnc milling")}, []types.CapabilityToken{capTok("cnc milling")})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, report.State)
	require.Len(t, report.Results, 1)
	assert.True(t, report.Results[0].Matched)
	assert.NotEmpty(t, tracker.Operations())
}

func TestOrchestratorSequentialStrategyEarlyTerminatesOnHighConfidence(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Strategy = config.StrategySequential
	cfg.EarlyTerminateConfidence = 0.9
	orch := NewOrchestrator(cfg, directOnlyLayers(), nil)

	report, err := orch.Run(context.Background(), []types.RequirementToken{reqTok("cnc milling")}, []types.CapabilityToken{capTok("cnc milling")})
	require.NoError(t, err)
	assert.Equal(t, StateEarlyTerminated, report.State)
}

func TestOrchestratorNoMatchesCompletesWithUnmatchedResult(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Strategy = config.StrategySequential
	orch := NewOrchestrator(cfg, directOnlyLayers(), nil)

	report, err := orch.Run(context.Background(), []types.RequirementToken{reqTok("cnc milling")}, []types.CapabilityToken{capTok("sous vide cooking")})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, report.State)
	require.Len(t, report.Results, 1)
	assert.False(t, report.Results[0].Matched)
}

func TestResolveStrategyAdaptivePicksCostOptimizedUnderTightBudget(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Strategy = config.StrategyAdaptive
	cfg.MaxComputeCost = 0.1
	orch := NewOrchestrator(cfg, directOnlyLayers(), nil)
	assert.Equal(t, config.StrategyCostOptimized, orch.resolveStrategy())
}

func TestResolveStrategyAdaptivePicksSequentialForHighAccuracy(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Strategy = config.StrategyAdaptive
	cfg.MaxComputeCost = 1.0
	cfg.MinAccuracy = 0.99
	orch := NewOrchestrator(cfg, directOnlyLayers(), nil)
	assert.Equal(t, config.StrategySequential, orch.resolveStrategy())
}

func TestResolveStrategyAdaptiveDefaultsToParallel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Strategy = config.StrategyAdaptive
	cfg.MaxComputeCost = 1.0
	cfg.MinAccuracy = 0.5
	orch := NewOrchestrator(cfg, directOnlyLayers(), nil)
	assert.Equal(t, config.StrategyParallel, orch.resolveStrategy())
}

func TestOrchestratorRoutesNearMissesToHandlerLayer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Strategy = config.StrategySequential
	cfg.NearMissHandlerLayer = string(types.LayerNLP)

	layers := map[types.LayerType]Layer{
		types.LayerDirect: WrapDirect(NewDirectMatcher(DirectConfig{NearMissThreshold: 3})),
		types.LayerNLP:    WrapNLP(NewNLPMatcher(NLPConfig{Domain: "manufacturing"}, nil)),
	}
	orch := NewOrchestrator(cfg, layers, nil)

	// "widget foo" vs "widget bar" is edit distance 3: a direct near-miss at
	// confidence 0.6, inside [near_miss_min, match_threshold).
	report, err := orch.Run(context.Background(), []types.RequirementToken{reqTok("widget foo")}, []types.CapabilityToken{capTok("widget bar")})
	require.NoError(t, err)

	var nlpResult *types.NormalizedMatchResult
	for i := range report.Results {
		if report.Results[i].LayerType == types.LayerNLP {
			nlpResult = &report.Results[i]
		}
	}
	require.NotNil(t, nlpResult, "expected an NLP layer result")
	assert.Contains(t, nlpResult.Reasons, "re-evaluated as near-miss")
	assert.InDelta(t, 0.5167, nlpResult.Confidence, 0.001)
	assert.Equal(t, types.QualityLow, nlpResult.Quality)
}

func TestFilterHighConfidenceExcludesSatisfiedCapabilities(t *testing.T) {
	caps := []types.CapabilityToken{{Raw: "cnc milling"}, {Raw: "welding"}}
	results := []types.MatchingResult{
		{Capability: "cnc milling", Matched: true, Confidence: 0.95},
	}
	remaining := filterHighConfidence(caps, results, 0.9)
	require.Len(t, remaining, 1)
	assert.Equal(t, "welding", remaining[0].Raw)
}

func TestMergeReasonsDeduplicates(t *testing.T) {
	out := mergeReasons([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, out)
}
