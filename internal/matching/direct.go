// Package matching implements the four matcher layers (spec.md sections
// 4.3-4.6, components C3-C6) and the orchestrator that runs them (spec.md
// section 4.7, component C7).
package matching

import (
	"context"
	"strings"
	"time"

	"github.com/helpfulengineering/ome-matching-core/internal/logging"
	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

// DirectConfig configures the Direct matcher (spec.md section 4.3).
type DirectConfig struct {
	NearMissThreshold int // default 2
}

// DirectMatcher performs exact/near-miss string matching with quality tiers.
// It is a pure function of its inputs and configuration (spec.md section
// 4.3: "Determinism: pure function of inputs and configuration"), grounded
// on the teacher's confidence-bucket style in
// internal/embedding/task_selector.go and the scored-match shape of
// internal/shards/matching.go's SpecialistMatch.
type DirectMatcher struct {
	cfg DirectConfig
}

// NewDirectMatcher builds a DirectMatcher. A zero NearMissThreshold is
// replaced with the spec default of 2.
func NewDirectMatcher(cfg DirectConfig) *DirectMatcher {
	if cfg.NearMissThreshold <= 0 {
		cfg.NearMissThreshold = 2
	}
	return &DirectMatcher{cfg: cfg}
}

// Match produces one result per (requirement, capability) pair in the full
// cross product of reqs x caps (spec.md section 4.3).
func (m *DirectMatcher) Match(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken) []types.MatchingResult {
	timer := logging.StartTimer(logging.CategoryDirect, "Match")
	defer timer.Stop()

	out := make([]types.MatchingResult, 0, len(reqs)*len(caps))
	for _, req := range reqs {
		select {
		case <-ctx.Done():
			return out
		default:
		}
		for _, cap_ := range caps {
			out = append(out, m.matchOne(req, cap_))
		}
	}
	return out
}

func (m *DirectMatcher) matchOne(req types.RequirementToken, cap_ types.CapabilityToken) types.MatchingResult {
	start := time.Now()
	rn, cn := req.Normalized, cap_.Normalized

	result := types.MatchingResult{
		Requirement:     req.Raw,
		Capability:      cap_.Raw,
		RequirementNorm: rn,
		CapabilityNorm:  cn,
		LayerType:       types.LayerDirect,
	}

	// Case/whitespace tiers are classified on the raw, pre-taxonomy-fold
	// text: Normalized is already a taxonomy-canonical id or a
	// lowercased/trimmed fallback, so comparing rn/cn directly would always
	// fold away the very differences these tiers exist to detect.
	rawReq, rawCap := strings.TrimSpace(req.Raw), strings.TrimSpace(cap_.Raw)

	if rawReq == rawCap {
		result.Matched = true
		result.Confidence = 1.0
		result.Metadata = meta("direct_exact", 1.0, types.QualityPerfect, start, 0, nil)
		return result
	}

	if equalFold(rawReq, rawCap) {
		result.Matched = true
		result.Confidence = 0.95
		result.Metadata = meta("direct_case_diff", 0.95, types.QualityCaseDiff, start, 0, []string{"case difference only"})
		return result
	}

	if equalCollapsedWhitespace(rawReq, rawCap) {
		result.Matched = true
		result.Confidence = 0.9
		result.Metadata = meta("direct_whitespace_diff", 0.9, types.QualityWhitespaceDiff, start, 0, []string{"whitespace difference only"})
		return result
	}

	if rn == cn {
		result.Matched = true
		result.Confidence = 1.0
		result.Metadata = meta("direct_exact", 1.0, types.QualityPerfect, start, 0, []string{"same taxonomy-normalized form"})
		return result
	}

	dist := levenshtein(rn, cn)
	if dist <= m.cfg.NearMissThreshold {
		conf := nearMissConfidence(dist)
		result.Matched = true
		result.Confidence = conf
		result.Metadata = meta("direct_near_miss", conf, types.QualityNearMiss, start, dist, []string{"near-miss edit distance"})
		return result
	}

	result.Matched = false
	result.Confidence = 0.0
	result.Metadata = meta("direct_no_match", 0.0, types.QualityNoMatch, start, dist, nil)
	return result
}

func nearMissConfidence(dist int) float64 {
	switch dist {
	case 1:
		return 0.8
	case 2:
		return 0.7
	default:
		return 0.6
	}
}

func meta(method string, confidence float64, quality types.Quality, start time.Time, charDiff int, reasons []string) types.MatchMetadata {
	return types.MatchMetadata{
		Method:              method,
		Confidence:          confidence,
		Reasons:             reasons,
		Quality:             quality,
		ProcessingTimeMS:    float64(time.Since(start).Microseconds()) / 1000.0,
		CharacterDifference: charDiff,
		Timestamp:           time.Now(),
	}
}
