package matching

import (
	"context"
	"time"

	"github.com/helpfulengineering/ome-matching-core/internal/logging"
	"github.com/helpfulengineering/ome-matching-core/internal/rules"
	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

// RuleLookup is the narrow slice of rules.Store the Heuristic matcher needs,
// kept as an interface so tests can substitute a stub.
type RuleLookup interface {
	FindRules(domain, capability, requirement string) []rules.CapabilityRule
}

// HeuristicMatcher consults the Rule Store with normalized tokens (spec.md
// section 4.4): for each (req, cap), if any rule matches, emit matched=true
// with the max rule confidence. Grounded on the teacher's
// internal/shards/matching.go capability-pattern scoring.
type HeuristicMatcher struct {
	store  RuleLookup
	domain string
}

// NewHeuristicMatcher builds a HeuristicMatcher bound to a single domain's
// rules, matching the Rule Store's find_rules(domain, ...) contract.
func NewHeuristicMatcher(store RuleLookup, domain string) *HeuristicMatcher {
	return &HeuristicMatcher{store: store, domain: domain}
}

// Match produces one result per (requirement, capability) pair in the full
// cross product of reqs x caps.
func (m *HeuristicMatcher) Match(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken) []types.MatchingResult {
	timer := logging.StartTimer(logging.CategoryHeuristic, "Match")
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

func (m *HeuristicMatcher) matchOne(req types.RequirementToken, cap_ types.CapabilityToken) types.MatchingResult {
	start := time.Now()
	result := types.MatchingResult{
		Requirement:     req.Raw,
		Capability:      cap_.Raw,
		RequirementNorm: req.Normalized,
		CapabilityNorm:  cap_.Normalized,
		LayerType:       types.LayerHeuristic,
	}

	candidates := m.store.FindRules(m.domain, cap_.Normalized, req.Normalized)
	if len(candidates) == 0 {
		result.Matched = false
		result.Confidence = 0.0
		result.Metadata = types.MatchMetadata{
			Method:           "heuristic_no_rule",
			Confidence:       0,
			Quality:          types.QualityNoMatch,
			ProcessingTimeMS: elapsedMS(start),
			Timestamp:        time.Now(),
		}
		return result
	}

	best := candidates[0]
	for _, r := range candidates[1:] {
		if r.Confidence > best.Confidence {
			best = r
		}
	}

	result.Matched = true
	result.Confidence = best.Confidence
	result.Metadata = types.MatchMetadata{
		Method:           "heuristic_rule_match",
		Confidence:       best.Confidence,
		Quality:          types.QualityRuleMatch,
		ProcessingTimeMS: elapsedMS(start),
		RuleUsed:         best.ID,
		Reasons:          []string{"rule " + best.ID + " satisfies requirement via capability"},
		Timestamp:        time.Now(),
	}
	return result
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
