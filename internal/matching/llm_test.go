package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpfulengineering/ome-matching-core/internal/llm"
	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

type stubAdapter struct {
	resp llm.Response
	err  error
}

func (s stubAdapter) Generate(_ context.Context, _ string, _ llm.Params) (llm.Response, error) {
	return s.resp, s.err
}

func TestLLMMatcherNilAdapterReportsUnavailable(t *testing.T) {
	m := NewLLMMatcher(LLMConfig{Domain: "manufacturing"}, nil)
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("cnc milling")}, []types.CapabilityToken{capTok("cnc milling")}, "")
	require.Len(t, results, 1)
	assert.False(t, results[0].Matched)
	assert.Equal(t, "llm_unavailable", results[0].Metadata.Method)
}

func TestLLMMatcherAdapterErrorIncrementsMetrics(t *testing.T) {
	m := NewLLMMatcher(LLMConfig{Domain: "manufacturing"}, stubAdapter{err: errors.New("timeout")})
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("cnc milling")}, []types.CapabilityToken{capTok("cnc milling")}, "")
	require.Len(t, results, 1)
	assert.False(t, results[0].Matched)
	assert.Equal(t, "llm_error", results[0].Metadata.Method)
	assert.Equal(t, 1, m.Metrics().Errors)
}

func TestLLMMatcherParsesStructuredResponse(t *testing.T) {
	m := NewLLMMatcher(LLMConfig{Domain: "manufacturing"}, stubAdapter{
		resp: llm.Response{Text: `{"matched": true, "confidence": 0.92, "explanation": "both are CNC processes"}`, TokensUsed: 40, Cost: 0.002},
	})
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("cnc milling")}, []types.CapabilityToken{capTok("cnc milling")}, "")
	require.Len(t, results, 1)
	assert.True(t, results[0].Matched)
	assert.InDelta(t, 0.92, results[0].Confidence, 0.0001)
	assert.Equal(t, 1, m.Metrics().Successes)
	assert.Equal(t, 40, m.Metrics().TokensUsed)
}

func TestLLMMatcherUnparsableResponseIsError(t *testing.T) {
	m := NewLLMMatcher(LLMConfig{Domain: "manufacturing"}, stubAdapter{resp: llm.Response{Text: "not json"}})
	results := m.Match(context.Background(), []types.RequirementToken{reqTok("cnc milling")}, []types.CapabilityToken{capTok("cnc milling")}, "")
	require.Len(t, results, 1)
	assert.Equal(t, "llm_error", results[0].Metadata.Method)
}
