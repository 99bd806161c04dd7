package matching

import (
	"context"
	"strings"
	"time"

	"github.com/helpfulengineering/ome-matching-core/internal/embedding"
	"github.com/helpfulengineering/ome-matching-core/internal/logging"
	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

// NLPConfig configures the NLP matcher (spec.md section 4.5).
type NLPConfig struct {
	SimilarityThreshold float64 // default 0.7
	Domain              string
}

// NLPMatcher computes semantic similarity on context-enhanced text, using an
// injected embedding.Engine when configured and falling back to token
// similarity otherwise. Grounded on the teacher's internal/embedding engine
// contract plus internal/embedding/task_selector.go's context-enrichment
// idiom, generalized from task-routing keywords to domain lexicons.
type NLPMatcher struct {
	cfg    NLPConfig
	engine embedding.Engine // nil => fallback to token similarity
	lex    domainLexicon
}

// NewNLPMatcher builds an NLPMatcher. engine may be nil, in which case the
// fallback token similarity is used for every call.
func NewNLPMatcher(cfg NLPConfig, engine embedding.Engine) *NLPMatcher {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.7
	}
	return &NLPMatcher{cfg: cfg, engine: engine, lex: lexiconFor(cfg.Domain)}
}

// Match produces one result per (requirement, capability) pair in the full
// cross product of reqs x caps.
func (m *NLPMatcher) Match(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken) []types.MatchingResult {
	return m.match(ctx, reqs, caps, nil)
}

// MatchWithNearMisses runs the same matching as Match, but gives an extra
// confidence boost to pairs that an earlier layer flagged as a near-miss
// (spec.md section 4.7: near-misses are routed to a designated handler
// layer for re-evaluation with additional context). misses from layers
// other than this one are the only ones worth re-checking; a layer's own
// near-misses routed back to itself would be a no-op.
func (m *NLPMatcher) MatchWithNearMisses(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, misses []NearMiss) []types.MatchingResult {
	return m.match(ctx, reqs, caps, nearMissIndex(misses))
}

func (m *NLPMatcher) match(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, nearMisses map[nearMissKey]bool) []types.MatchingResult {
	timer := logging.StartTimer(logging.CategoryNLP, "Match")
	defer timer.Stop()

	out := make([]types.MatchingResult, 0, len(reqs)*len(caps))
	for _, req := range reqs {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		for _, cap_ := range caps {
			isNearMiss := nearMisses[nearMissKey{req: req.Raw, cap_: cap_.Raw}]
			out = append(out, m.matchOne(ctx, req, cap_, isNearMiss))
		}
	}
	return out
}

// nearMissKey identifies a (requirement, capability) pair by its raw text,
// matching how Feedback.Record populates NearMiss entries.
type nearMissKey struct {
	req, cap_ string
}

func nearMissIndex(misses []NearMiss) map[nearMissKey]bool {
	idx := make(map[nearMissKey]bool, len(misses))
	for _, nm := range misses {
		idx[nearMissKey{req: nm.Requirement, cap_: nm.Capability}] = true
	}
	return idx
}

func (m *NLPMatcher) matchOne(ctx context.Context, req types.RequirementToken, cap_ types.CapabilityToken, isNearMiss bool) types.MatchingResult {
	start := time.Now()
	log := logging.Get(logging.CategoryNLP)

	reqEnhanced, reqExpanded := m.lex.enhance(req.Normalized)
	capEnhanced, capExpanded := m.lex.enhance(cap_.Normalized)

	base, method := m.baseSimilarity(ctx, reqEnhanced, capEnhanced)
	boost := m.domainBoost(req.Normalized, cap_.Normalized, reqExpanded || capExpanded)
	if isNearMiss {
		boost += 0.1
	}

	similarity := base + boost
	if similarity > 1 {
		similarity = 1
	}
	if similarity < 0 {
		similarity = 0
	}

	quality := qualityForSimilarity(similarity)
	matched := similarity >= m.cfg.SimilarityThreshold

	var reasons []string
	if boost > 0 {
		reasons = append(reasons, "domain boost applied")
	}
	if isNearMiss {
		reasons = append(reasons, "re-evaluated as near-miss")
	}
	if !matched {
		log.Debugw("below similarity threshold", "requirement", req.Raw, "capability", cap_.Raw, "similarity", similarity)
	}

	sim := similarity
	return types.MatchingResult{
		Requirement:     req.Raw,
		Capability:      cap_.Raw,
		RequirementNorm: req.Normalized,
		CapabilityNorm:  cap_.Normalized,
		Matched:         matched,
		Confidence:      similarity,
		LayerType:       types.LayerNLP,
		Metadata: types.MatchMetadata{
			Method:             method,
			Confidence:         similarity,
			Reasons:            reasons,
			Quality:            quality,
			ProcessingTimeMS:   elapsedMS(start),
			SemanticSimilarity: &sim,
			Timestamp:          time.Now(),
		},
	}
}

// baseSimilarity computes raw semantic similarity on enhanced texts, using
// the injected engine if present (spec.md section 4.5, step 3).
func (m *NLPMatcher) baseSimilarity(ctx context.Context, a, b string) (float64, string) {
	if m.engine == nil {
		return embedding.TokenSimilarity(a, b), "nlp_token_fallback"
	}

	vecs, err := m.engine.EmbedBatch(ctx, []string{a, b})
	if err != nil || len(vecs) != 2 {
		logging.Get(logging.CategoryNLP).Errorw("embedding backend failed, falling back to token similarity", "error", err)
		return embedding.TokenSimilarity(a, b), "nlp_token_fallback_after_error"
	}

	sim, err := embedding.CosineSimilarity(vecs[0], vecs[1])
	if err != nil {
		logging.Get(logging.CategoryNLP).Errorw("cosine similarity failed, falling back to token similarity", "error", err)
		return embedding.TokenSimilarity(a, b), "nlp_token_fallback_after_error"
	}
	// Cosine similarity ranges [-1,1]; rescale to [0,1] to match the
	// similarity contract.
	return (sim + 1) / 2, "nlp_embedding"
}

// domainBoost computes the [0, 0.3]-clamped domain boost (spec.md section
// 4.5, step 4).
func (m *NLPMatcher) domainBoost(reqNorm, capNorm string, anyExpanded bool) float64 {
	var boost float64

	if sharedExactTerm(m.lex, reqNorm, capNorm) {
		boost += 0.2
	} else if m.lex.sharedCategory(reqNorm, capNorm) {
		boost += 0.1
	}
	if anyExpanded && m.lex.abbreviationBridges(reqNorm, capNorm) {
		boost += 0.15
	}

	if boost > 0.3 {
		boost = 0.3
	}
	return boost
}

// sharedExactTerm reports whether reqNorm and capNorm contain the identical
// category term (the strongest domain-boost signal).
func sharedExactTerm(lex domainLexicon, a, b string) bool {
	for _, cat := range lex.categories {
		for _, term := range cat {
			if strings.Contains(a, term) && strings.Contains(b, term) {
				return true
			}
		}
	}
	return false
}

func qualityForSimilarity(sim float64) types.Quality {
	switch {
	case sim >= 0.9:
		return types.QualityPerfect
	case sim >= 0.8:
		return types.QualityHigh
	case sim >= 0.7:
		return types.QualityMedium
	case sim >= 0.5:
		return types.QualityLow
	default:
		return types.QualityNoMatch
	}
}
