package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/helpfulengineering/ome-matching-core/internal/llm"
	"github.com/helpfulengineering/ome-matching-core/internal/logging"
	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

// LLMConfig configures the Layer 4 matcher (spec.md section 4.6).
type LLMConfig struct {
	MaxPromptChars int
	Domain         string
}

// LLMMetrics accumulates the per-layer counters spec.md section 4.8
// requires for the LLM layer specifically: request count, tokens, cost.
type LLMMetrics struct {
	Requests     int
	Successes    int
	Errors       int
	TokensUsed   int
	EstimatedCost float64
}

// LLMMatcher wraps an optional llm.Adapter. If adapter is nil, every call
// reports matched=false, method llm_unavailable (spec.md section 4.6).
// Grounded on the teacher's cmd/nerd/chat/northstar_llm.go prompt-then-parse
// flow and internal/shards/reviewer/llm.go's graceful-degradation style.
type LLMMatcher struct {
	cfg     LLMConfig
	adapter llm.Adapter
	metrics LLMMetrics
}

// NewLLMMatcher builds an LLMMatcher. adapter may be nil.
func NewLLMMatcher(cfg LLMConfig, adapter llm.Adapter) *LLMMatcher {
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = 4000
	}
	return &LLMMatcher{cfg: cfg, adapter: adapter}
}

// Metrics returns a snapshot of the layer's accumulated metrics.
func (m *LLMMatcher) Metrics() LLMMetrics {
	return m.metrics
}

// Match produces one result per (requirement, capability) pair. feedback
// (from earlier layers, spec.md section 4.7) is passed through as optional
// context text; it may be empty.
func (m *LLMMatcher) Match(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, feedback string) []types.MatchingResult {
	timer := logging.StartTimer(logging.CategoryLLM, "Match")
	defer timer.Stop()

	out := make([]types.MatchingResult, 0, len(reqs)*len(caps))
	for _, req := range reqs {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		for _, cap_ := range caps {
			out = append(out, m.matchOne(ctx, req, cap_, feedback))
		}
	}
	return out
}

func (m *LLMMatcher) matchOne(ctx context.Context, req types.RequirementToken, cap_ types.CapabilityToken, feedback string) types.MatchingResult {
	start := time.Now()
	result := types.MatchingResult{
		Requirement:     req.Raw,
		Capability:      cap_.Raw,
		RequirementNorm: req.Normalized,
		CapabilityNorm:  cap_.Normalized,
		LayerType:       types.LayerLLM,
	}

	if m.adapter == nil {
		result.Matched = false
		result.Confidence = 0
		result.Metadata = types.MatchMetadata{
			Method:           "llm_unavailable",
			Confidence:       0,
			Quality:          types.QualityNoMatch,
			ProcessingTimeMS: elapsedMS(start),
			Timestamp:        time.Now(),
		}
		return result
	}

	m.metrics.Requests++
	log := logging.Get(logging.CategoryLLM)

	prompt := m.buildPrompt(req, cap_, feedback)
	resp, err := m.adapter.Generate(ctx, prompt, llm.Params{MaxPromptChars: m.cfg.MaxPromptChars})
	if err != nil {
		m.metrics.Errors++
		log.Errorw("llm generate failed", "requirement", req.Raw, "capability", cap_.Raw, "error", err)
		result.Matched = false
		result.Confidence = 0
		result.Metadata = types.MatchMetadata{
			Method:           "llm_error",
			Confidence:       0,
			Reasons:          []string{"llm_error: " + err.Error()},
			Quality:          types.QualityNoMatch,
			ProcessingTimeMS: elapsedMS(start),
			Timestamp:        time.Now(),
		}
		return result
	}

	m.metrics.TokensUsed += resp.TokensUsed
	m.metrics.EstimatedCost += resp.Cost

	parsed, err := llm.ParseMatchResponse(resp.Text)
	if err != nil {
		m.metrics.Errors++
		log.Errorw("llm response parse failed", "error", err)
		result.Matched = false
		result.Confidence = 0
		result.Metadata = types.MatchMetadata{
			Method:           "llm_error",
			Confidence:       0,
			Reasons:          []string{"llm_error: " + err.Error()},
			Quality:          types.QualityNoMatch,
			ProcessingTimeMS: elapsedMS(start),
			Timestamp:        time.Now(),
		}
		return result
	}

	m.metrics.Successes++

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	result.Matched = parsed.Matched
	result.Confidence = confidence
	var reasons []string
	if parsed.Explanation != "" {
		reasons = []string{parsed.Explanation}
	}
	result.Metadata = types.MatchMetadata{
		Method:           "llm_structured_response",
		Confidence:       confidence,
		Reasons:          reasons,
		Quality:          qualityForSimilarity(confidence),
		ProcessingTimeMS: elapsedMS(start),
		Timestamp:        time.Now(),
	}
	return result
}

func (m *LLMMatcher) buildPrompt(req types.RequirementToken, cap_ types.CapabilityToken, feedback string) string {
	prompt := fmt.Sprintf(
		"Domain: %s\nRequirement: %s\nCapability: %s\n",
		m.cfg.Domain, req.Raw, cap_.Raw,
	)
	if feedback != "" {
		prompt += "Context from earlier matching layers: " + feedback + "\n"
	}
	prompt += `Respond with a single JSON object: {"matched": bool, "confidence": float in [0,1], "explanation": string}.`
	return llm.TruncatePrompt(prompt, m.cfg.MaxPromptChars)
}
