// Package supplytree builds the ranked SupplyTree from a manifest's
// requirements, a facility's capabilities, and the Orchestrator's per-
// requirement normalized match sets (spec.md section 4.9).
package supplytree

import (
	"hash/fnv"
	"sort"

	"github.com/helpfulengineering/ome-matching-core/internal/logging"
	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

// Candidate is one ranked match for a single requirement.
type Candidate struct {
	CapabilityNorm string
	LayerType      types.LayerType
	Confidence     float64
	Quality        types.Quality
}

// RequirementCoverage holds a requirement's ranked candidates.
type RequirementCoverage struct {
	RequirementNorm string
	Candidates      []Candidate // sorted by confidence desc
	BestConfidence  float64
	Critical        bool
}

// SupplyTree is the builder's output (spec.md section 4.9).
type SupplyTree struct {
	SolutionID        string
	Coverage          float64
	OverallConfidence float64
	TotalProcessingMS float64
	Requirements      []RequirementCoverage
	RequiresReview    bool
}

// Config parameterizes the builder (spec.md section 4.9 and section 6).
type Config struct {
	CoverageThresholdToMatch float64 // tau_cover: confidence needed for a requirement to count as covered
	MinCoverage              float64 // validation floor; below this, RequiresReview is forced true
}

// DefaultConfig uses 0.7 as the coverage cut (the config match_threshold
// default) and 0.5 as the review floor.
func DefaultConfig() Config {
	return Config{CoverageThresholdToMatch: 0.7, MinCoverage: 0.5}
}

// Build assembles a SupplyTree for one candidate solution (spec.md section
// 4.9). solutionID identifies the facility/plan this tree represents, for
// tie-break hashing during ranking.
func Build(cfg Config, solutionID string, reqs []types.RequirementToken, results []types.NormalizedMatchResult, totalProcessingMS float64) SupplyTree {
	log := logging.Get(logging.CategorySupplyTree)

	byReq := make(map[string][]types.NormalizedMatchResult)
	for _, r := range results {
		byReq[r.RequirementNorm] = append(byReq[r.RequirementNorm], r)
	}

	coverageCount := 0
	var weightedSum, weightTotal float64
	reqCoverage := make([]RequirementCoverage, 0, len(reqs))

	for _, req := range reqs {
		matches := byReq[req.Normalized]
		candidates := make([]Candidate, 0, len(matches))
		best := 0.0
		for _, m := range matches {
			if !m.Matched {
				continue
			}
			candidates = append(candidates, Candidate{
				CapabilityNorm: m.CapabilityNorm,
				LayerType:      m.LayerType,
				Confidence:     m.Confidence,
				Quality:        m.Quality,
			})
			if m.Confidence > best {
				best = m.Confidence
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].Confidence > candidates[j].Confidence
		})

		critical := req.Criticality > 0
		weight := req.Criticality
		if weight <= 0 {
			weight = 1
		}

		if best >= cfg.CoverageThresholdToMatch {
			coverageCount++
		}
		weightedSum += best * weight
		weightTotal += weight

		reqCoverage = append(reqCoverage, RequirementCoverage{
			RequirementNorm: req.Normalized,
			Candidates:      candidates,
			BestConfidence:  best,
			Critical:        critical,
		})
	}

	// An empty requirement set is vacuously fully covered (spec.md section
	// 8: "Empty requirements => coverage = 1.0 by convention").
	coverage := 1.0
	if len(reqs) > 0 {
		coverage = float64(coverageCount) / float64(len(reqs))
	}
	overallConfidence := 0.0
	if weightTotal > 0 {
		overallConfidence = weightedSum / weightTotal
	}

	tree := SupplyTree{
		SolutionID:        solutionID,
		Coverage:          coverage,
		OverallConfidence: overallConfidence,
		TotalProcessingMS: totalProcessingMS,
		Requirements:      reqCoverage,
	}

	tree.RequiresReview = validate(tree, cfg)
	if tree.RequiresReview {
		log.Debugw("supply tree flagged for review", "solution", solutionID, "coverage", coverage)
	}
	return tree
}

// validate implements spec.md section 4.9's rejection rule: coverage below
// a configurable minimum, or any unmatched critical requirement, flags the
// tree requires_review rather than discarding it.
func validate(tree SupplyTree, cfg Config) bool {
	if tree.Coverage < cfg.MinCoverage {
		return true
	}
	for _, r := range tree.Requirements {
		if r.Critical && r.BestConfidence < cfg.CoverageThresholdToMatch {
			return true
		}
	}
	return false
}

// Rank orders candidate SupplyTrees by (coverage desc, overall_confidence
// desc, total_processing_time asc), breaking ties deterministically by
// hashing the solution identifier (spec.md section 4.9).
func Rank(trees []SupplyTree) []SupplyTree {
	out := make([]SupplyTree, len(trees))
	copy(out, trees)

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Coverage != b.Coverage {
			return a.Coverage > b.Coverage
		}
		if a.OverallConfidence != b.OverallConfidence {
			return a.OverallConfidence > b.OverallConfidence
		}
		if a.TotalProcessingMS != b.TotalProcessingMS {
			return a.TotalProcessingMS < b.TotalProcessingMS
		}
		return hashSolutionID(a.SolutionID) < hashSolutionID(b.SolutionID)
	})
	return out
}

func hashSolutionID(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32()
}
