package matching

import (
	"strconv"

	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

// NearMiss is a (req, cap) pair that fell in [near_miss_min, match_threshold)
// confidence, a candidate for routing to a designated handler layer
// (spec.md section 4.7).
type NearMiss struct {
	Requirement string
	Capability  string
	LayerType   types.LayerType
	Confidence  float64
}

// Feedback is threaded between layers in sequential/adaptive strategies
// (spec.md section 4.7: "Feedback object ... layer-keyed results map,
// near_misses[], insights{}, runtime metrics"). Each layer reads only the
// keys documented for its tier; nothing here enforces that contractually,
// it is left to the layer implementations, matching the teacher's
// convention of passing a shared context struct by value/pointer without a
// capability system.
type Feedback struct {
	// LayerResults holds every result produced so far, keyed by layer.
	LayerResults map[types.LayerType][]types.MatchingResult
	NearMisses   []NearMiss
	Insights     map[string]string
	Metrics      map[types.LayerType]types.LayerMetrics
}

// NewFeedback returns an empty, ready-to-use Feedback.
func NewFeedback() *Feedback {
	return &Feedback{
		LayerResults: make(map[types.LayerType][]types.MatchingResult),
		Insights:     make(map[string]string),
		Metrics:      make(map[types.LayerType]types.LayerMetrics),
	}
}

// Record appends a layer's results and metrics, and extracts near-misses
// whose confidence falls in [nearMissMin, matchThreshold).
func (f *Feedback) Record(layer types.LayerType, results []types.MatchingResult, metrics types.LayerMetrics, nearMissMin, matchThreshold float64) {
	f.LayerResults[layer] = append(f.LayerResults[layer], results...)
	f.Metrics[layer] = metrics

	for _, r := range results {
		if r.Confidence >= nearMissMin && r.Confidence < matchThreshold {
			f.NearMisses = append(f.NearMisses, NearMiss{
				Requirement: r.Requirement,
				Capability:  r.Capability,
				LayerType:   r.LayerType,
				Confidence:  r.Confidence,
			})
		}
	}
}

// Summary renders a short text digest of matched pairs and near-misses,
// suitable to pass as LLM prompt context (spec.md section 4.6: "optional
// context (feedback from earlier layers)").
func (f *Feedback) Summary() string {
	matched := 0
	for _, results := range f.LayerResults {
		for _, r := range results {
			if r.Matched {
				matched++
			}
		}
	}
	if matched == 0 && len(f.NearMisses) == 0 {
		return ""
	}
	summary := "matched_so_far=" + strconv.Itoa(matched)
	if len(f.NearMisses) > 0 {
		summary += ", near_misses=" + strconv.Itoa(len(f.NearMisses))
	}
	return summary
}
