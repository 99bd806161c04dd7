package matching

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/helpfulengineering/ome-matching-core/internal/config"
	"github.com/helpfulengineering/ome-matching-core/internal/logging"
	"github.com/helpfulengineering/ome-matching-core/internal/provenance"
	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

// RequestState is the per-request matching state machine (spec.md section
// 4.7: "QUEUED -> RUNNING -> {COMPLETED | FAILED | EARLY_TERMINATED}").
type RequestState string

const (
	StateQueued          RequestState = "QUEUED"
	StateRunning         RequestState = "RUNNING"
	StateCompleted       RequestState = "COMPLETED"
	StateFailed          RequestState = "FAILED"
	StateEarlyTerminated RequestState = "EARLY_TERMINATED"
)

// Layer is the uniform shape every matcher layer is adapted to so the
// orchestrator can run them interchangeably. feedback is nil for every layer
// of a parallel run; in a sequential run every layer receives the shared
// Feedback, which is still empty for the first layer.
type Layer interface {
	Name() types.LayerType
	Match(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, feedback *Feedback) []types.MatchingResult
}

type directLayer struct{ m *DirectMatcher }

func (l directLayer) Name() types.LayerType { return types.LayerDirect }
func (l directLayer) Match(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, _ *Feedback) []types.MatchingResult {
	return l.m.Match(ctx, reqs, caps)
}

type heuristicLayer struct{ m *HeuristicMatcher }

func (l heuristicLayer) Name() types.LayerType { return types.LayerHeuristic }
func (l heuristicLayer) Match(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, _ *Feedback) []types.MatchingResult {
	return l.m.Match(ctx, reqs, caps)
}

type nlpLayer struct{ m *NLPMatcher }

func (l nlpLayer) Name() types.LayerType { return types.LayerNLP }
func (l nlpLayer) Match(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, _ *Feedback) []types.MatchingResult {
	return l.m.Match(ctx, reqs, caps)
}

// MatchNearMisses lets the NLP layer serve as the near-miss handler layer
// (spec.md section 4.7, config.NearMissHandlerLayer) by implementing
// NearMissHandler.
func (l nlpLayer) MatchNearMisses(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, misses []NearMiss) []types.MatchingResult {
	return l.m.MatchWithNearMisses(ctx, reqs, caps, misses)
}

type llmLayer struct{ m *LLMMatcher }

func (l llmLayer) Name() types.LayerType { return types.LayerLLM }
func (l llmLayer) Match(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, feedback *Feedback) []types.MatchingResult {
	summary := ""
	if feedback != nil {
		summary = feedback.Summary()
	}
	return l.m.Match(ctx, reqs, caps, summary)
}

// WrapDirect, WrapHeuristic, WrapNLP, WrapLLM adapt concrete matchers to the
// Layer interface for use with an Orchestrator.
func WrapDirect(m *DirectMatcher) Layer       { return directLayer{m} }
func WrapHeuristic(m *HeuristicMatcher) Layer { return heuristicLayer{m} }
func WrapNLP(m *NLPMatcher) Layer             { return nlpLayer{m} }
func WrapLLM(m *LLMMatcher) Layer             { return llmLayer{m} }

// NearMissHandler is implemented by layers that can re-evaluate another
// layer's near-misses with extra weight (spec.md section 4.7:
// "near-misses [...] routed to a designated handler layer"). Only the NLP
// layer implements it today; config.NearMissHandlerLayer naming any other
// layer is a no-op.
type NearMissHandler interface {
	MatchNearMisses(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, misses []NearMiss) []types.MatchingResult
}

// Report is the orchestrator's output: the deduplicated, normalized result
// set plus the feedback trail and final request state.
type Report struct {
	State     RequestState
	Results   []types.NormalizedMatchResult
	Feedback  *Feedback
	Strategy  config.Strategy
	StartedAt time.Time
	EndedAt   time.Time
}

// Orchestrator runs the configured layers according to a strategy (spec.md
// section 4.7). Grounded on the teacher's semantic_classifier.go errgroup
// fan-out for the parallel case, generalized from a two-store search to an
// arbitrary ordered layer list.
type Orchestrator struct {
	cfg    *config.Config
	layers map[types.LayerType]Layer
	order  []types.LayerType // canonical sequential order: direct, heuristic, nlp, llm
	track  *provenance.Tracker
}

// NewOrchestrator builds an Orchestrator over the given layers. Layers
// absent from the map are simply skipped. tracker may be nil, in which case
// no provenance is recorded.
func NewOrchestrator(cfg *config.Config, layers map[types.LayerType]Layer, tracker *provenance.Tracker) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		layers: layers,
		order:  []types.LayerType{types.LayerDirect, types.LayerHeuristic, types.LayerNLP, types.LayerLLM},
		track:  tracker,
	}
}

// Run executes the matching request end to end and returns a Report.
func (o *Orchestrator) Run(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken) (*Report, error) {
	log := logging.Get(logging.CategoryOrchestrator)
	report := &Report{State: StateQueued, StartedAt: time.Now(), Strategy: o.resolveStrategy()}
	report.State = StateRunning

	var opID string
	if o.track != nil {
		opID = o.track.Start("orchestrator_run", "", map[string]int{"requirements": len(reqs), "capabilities": len(caps)})
	}

	feedback := NewFeedback()
	var earlyTerminated bool
	var err error

	switch report.Strategy {
	case config.StrategyParallel:
		err = o.runParallel(ctx, reqs, caps, feedback)
	case config.StrategySequential:
		earlyTerminated, err = o.runSequential(ctx, reqs, caps, feedback, false)
	case config.StrategyCostOptimized:
		earlyTerminated, err = o.runSequential(ctx, reqs, caps, feedback, true)
	default:
		earlyTerminated, err = o.runSequential(ctx, reqs, caps, feedback, false)
	}

	report.EndedAt = time.Now()
	report.Feedback = feedback

	if o.track != nil {
		for layer, metrics := range feedback.Metrics {
			o.track.RecordLayer(layer, metrics)
		}
	}

	if err != nil {
		report.State = StateFailed
		log.Errorw("orchestrator run failed", "error", err)
		if o.track != nil {
			o.track.Fail(opID, err)
		}
		return report, err
	}

	report.Results = normalize(feedback)

	if earlyTerminated {
		report.State = StateEarlyTerminated
	} else {
		report.State = StateCompleted
	}

	if o.track != nil {
		o.track.Complete(opID, map[string]float64{"results": float64(len(report.Results))})
	}
	return report, nil
}

// resolveStrategy implements the Adaptive strategy's context-budget
// decision (spec.md section 4.7): max_compute_cost set and below 0.5 ->
// cost-optimized; else min_accuracy >= 0.95 -> sequential; else parallel.
func (o *Orchestrator) resolveStrategy() config.Strategy {
	if o.cfg.Strategy != config.StrategyAdaptive {
		return o.cfg.Strategy
	}
	if o.cfg.MaxComputeCost > 0 && o.cfg.MaxComputeCost < 0.5 {
		return config.StrategyCostOptimized
	}
	if o.cfg.MinAccuracy >= 0.95 {
		return config.StrategySequential
	}
	return config.StrategyParallel
}

// runParallel invokes every enabled layer concurrently over the full
// (reqs x caps) set, per spec.md section 4.7. errgroup mirrors the
// teacher's semantic_classifier.go dual-store fan-out, generalized to N
// layers; a single layer failing does not abort the others (layers here
// never return error themselves — Match is total — so this only guards
// against future layers that might panic-recover upstream).
func (o *Orchestrator) runParallel(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, feedback *Feedback) error {
	g, gctx := errgroup.WithContext(ctx)

	type layerOutcome struct {
		layer   types.LayerType
		results []types.MatchingResult
		metrics types.LayerMetrics
	}
	outcomes := make(chan layerOutcome, len(o.order))

	for _, lt := range o.order {
		layer, ok := o.layers[lt]
		if !ok {
			continue
		}
		lt, layer := lt, layer
		g.Go(func() error {
			start := time.Now()
			results := layer.Match(gctx, reqs, caps, nil)
			metrics := summarizeMetrics(start, reqs, caps, results)
			outcomes <- layerOutcome{layer: lt, results: results, metrics: metrics}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	close(outcomes)

	for oc := range outcomes {
		feedback.Record(oc.layer, oc.results, oc.metrics, o.cfg.NearMissMin, o.cfg.MatchThreshold)
	}
	return nil
}

// runSequential invokes layers in canonical order direct -> heuristic ->
// nlp -> llm, filtering already-high-confidence capabilities between
// layers and checking early-termination conditions after each layer (spec.md
// section 4.7). When costOptimized is true, only the direct and heuristic
// layers run; the early-termination checks are the same as for plain
// sequential.
func (o *Orchestrator) runSequential(ctx context.Context, reqs []types.RequirementToken, caps []types.CapabilityToken, feedback *Feedback, costOptimized bool) (bool, error) {
	log := logging.Get(logging.CategoryOrchestrator)
	remainingCaps := caps

	for _, lt := range o.order {
		layer, ok := o.layers[lt]
		if !ok {
			continue
		}
		if costOptimized && lt != types.LayerDirect && lt != types.LayerHeuristic {
			continue
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
		}

		// Snapshot near-misses accumulated by earlier layers before this
		// layer records its own, so the handler check below only re-routes
		// misses that actually came from earlier layers.
		priorNearMisses := feedback.NearMisses

		start := time.Now()
		results := layer.Match(ctx, reqs, remainingCaps, feedback)
		metrics := summarizeMetrics(start, reqs, remainingCaps, results)
		feedback.Record(lt, results, metrics, o.cfg.NearMissMin, o.cfg.MatchThreshold)

		log.Debugw("layer completed", "layer", lt, "matches", metrics.MatchesFound)

		if string(lt) == o.cfg.NearMissHandlerLayer && len(priorNearMisses) > 0 {
			if handler, ok := layer.(NearMissHandler); ok {
				reResults := handler.MatchNearMisses(ctx, reqs, remainingCaps, priorNearMisses)
				reMetrics := summarizeMetrics(start, reqs, remainingCaps, reResults)
				feedback.Record(lt, reResults, reMetrics, o.cfg.NearMissMin, o.cfg.MatchThreshold)
				log.Debugw("near-miss handler re-evaluated", "layer", lt, "misses", len(priorNearMisses))
			}
		}

		if o.earlyTerminate(results, reqs, caps) {
			return true, nil
		}

		remainingCaps = filterHighConfidence(remainingCaps, results, o.cfg.HighConfidenceThreshold)
		if len(remainingCaps) == 0 {
			return false, nil
		}
	}
	return false, nil
}

// earlyTerminate reports whether the run can stop after this layer's
// results: (a) any match with confidence >= early_terminate_confidence, or
// (b) the share of requirements matched at confidence >= coverage_threshold
// is itself >= coverage_threshold. No compute-budget condition is checked.
func (o *Orchestrator) earlyTerminate(results []types.MatchingResult, reqs []types.RequirementToken, caps []types.CapabilityToken) bool {
	if len(results) == 0 {
		return false
	}

	highConfidenceReqs := make(map[string]bool)
	for _, r := range results {
		if r.Matched && r.Confidence >= o.cfg.EarlyTerminateConfidence {
			return true
		}
		if r.Matched && r.Confidence >= o.cfg.CoverageThreshold {
			highConfidenceReqs[r.Requirement] = true
		}
	}

	if len(reqs) > 0 {
		coverage := float64(len(highConfidenceReqs)) / float64(len(reqs))
		if coverage >= o.cfg.CoverageThreshold {
			return true
		}
	}
	return false
}

// filterHighConfidence excludes capabilities already matched at or above
// threshold for any requirement (spec.md section 4.7: "exclude those
// already matched >= high_confidence_threshold").
func filterHighConfidence(caps []types.CapabilityToken, results []types.MatchingResult, threshold float64) []types.CapabilityToken {
	satisfied := make(map[string]bool)
	for _, r := range results {
		if r.Matched && r.Confidence >= threshold {
			satisfied[r.Capability] = true
		}
	}
	if len(satisfied) == 0 {
		return caps
	}

	out := make([]types.CapabilityToken, 0, len(caps))
	for _, c := range caps {
		if !satisfied[c.Raw] {
			out = append(out, c)
		}
	}
	return out
}

// normalize deduplicates across all recorded layer results by (req_norm,
// cap_norm, layer), keeping the highest-confidence result and merging
// reasons (spec.md section 4.7).
func normalize(feedback *Feedback) []types.NormalizedMatchResult {
	type key struct {
		req, cap_ string
		layer     types.LayerType
	}
	best := make(map[key]types.NormalizedMatchResult)

	for layer, results := range feedback.LayerResults {
		for _, r := range results {
			k := key{req: r.RequirementNorm, cap_: r.CapabilityNorm, layer: layer}
			existing, ok := best[k]
			if !ok || r.Confidence > existing.Confidence {
				best[k] = types.NormalizedMatchResult{
					RequirementNorm: k.req,
					CapabilityNorm:  k.cap_,
					LayerType:       layer,
					Matched:         r.Matched,
					Confidence:      r.Confidence,
					Reasons:         mergeReasons(existing.Reasons, r.Metadata.Reasons),
					Quality:         r.Metadata.Quality,
				}
			} else {
				merged := best[k]
				merged.Reasons = mergeReasons(merged.Reasons, r.Metadata.Reasons)
				best[k] = merged
			}
		}
	}

	out := make([]types.NormalizedMatchResult, 0, len(best))
	for _, v := range best {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RequirementNorm != out[j].RequirementNorm {
			return out[i].RequirementNorm < out[j].RequirementNorm
		}
		if out[i].CapabilityNorm != out[j].CapabilityNorm {
			return out[i].CapabilityNorm < out[j].CapabilityNorm
		}
		return out[i].LayerType < out[j].LayerType
	})
	return out
}

func mergeReasons(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(add))
	for _, r := range existing {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, r := range add {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

func summarizeMetrics(start time.Time, reqs []types.RequirementToken, caps []types.CapabilityToken, results []types.MatchingResult) types.LayerMetrics {
	matches := 0
	var errs []string
	for _, r := range results {
		if r.Matched {
			matches++
		}
		if r.Metadata.Method == "llm_error" {
			errs = append(errs, fmt.Sprintf("%s/%s: %v", r.Requirement, r.Capability, r.Metadata.Reasons))
		}
	}
	return types.LayerMetrics{
		Start:             start,
		End:               time.Now(),
		Success:           true,
		MatchesFound:      matches,
		TotalRequirements: len(reqs),
		TotalCapabilities: len(caps),
		Errors:            errs,
	}
}
