// Package facade implements the Matching Service Facade (spec.md section
// 4.10, component C10): the single entry point that resolves domain and
// capability sources, wires the four matcher layers into an Orchestrator,
// and returns a structured report instead of letting layer failures
// propagate as exceptions.
package facade

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/helpfulengineering/ome-matching-core/internal/config"
	"github.com/helpfulengineering/ome-matching-core/internal/embedding"
	"github.com/helpfulengineering/ome-matching-core/internal/errs"
	"github.com/helpfulengineering/ome-matching-core/internal/llm"
	"github.com/helpfulengineering/ome-matching-core/internal/logging"
	"github.com/helpfulengineering/ome-matching-core/internal/matching"
	"github.com/helpfulengineering/ome-matching-core/internal/provenance"
	"github.com/helpfulengineering/ome-matching-core/internal/rules"
	"github.com/helpfulengineering/ome-matching-core/internal/supplytree"
	"github.com/helpfulengineering/ome-matching-core/internal/taxonomy"
	"github.com/helpfulengineering/ome-matching-core/internal/types"
)

// Service is the Matching Service Facade.
type Service struct {
	cfg      *config.Config
	taxonomy *taxonomy.Registry
	rules    *rules.Store
	embed    embedding.Engine // optional
	llm      llm.Adapter      // optional
	source   Source
}

// NewService wires a Service from its already-loaded dependencies. embed
// and adapter may be nil.
func NewService(cfg *config.Config, taxReg *taxonomy.Registry, ruleStore *rules.Store, embed embedding.Engine, adapter llm.Adapter, source Source) *Service {
	return &Service{cfg: cfg, taxonomy: taxReg, rules: ruleStore, embed: embed, llm: adapter, source: source}
}

// MatchingReport is the facade's structured, never-raises result (spec.md
// section 7: "callers always receive a MatchingReport with status ∈ {ok,
// partial, failed}").
type MatchingReport struct {
	Status          string // "ok", "partial", "failed"
	FacilityResults map[string][]types.NormalizedMatchResult
	Errors          []string
	Operations      []provenance.Operation
	LayerMetrics    map[string]map[types.LayerType]provenance.LayerCounters
}

// MatchRequirementsRequest parameterizes match_requirements (spec.md
// section 4.10). Exactly one of FacilityID / FacilitySet should be set;
// if both are empty, every facility in the resolved domain is matched.
type MatchRequirementsRequest struct {
	ManifestID   string
	FacilityID   string
	FacilitySet  []string
	Domain       string
	QualityLevel config.QualityLevel
	Strict       bool
}

// MatchRequirements is the facade's primary entry point (spec.md section
// 4.10: "match_requirements(manifest, {facility_id? | facility_set?},
// domain?, quality_level?, strict?) -> MatchingReport").
func (s *Service) MatchRequirements(ctx context.Context, req MatchRequirementsRequest) MatchingReport {
	log := logging.Get(logging.CategoryFacade)

	if req.ManifestID == "" {
		return failedReport(errs.New(errs.KindInputInvalid, "manifest id is required"))
	}

	manifest, err := s.source.GetManifest(ctx, req.ManifestID)
	if err != nil {
		return failedReport(errs.Wrap(errs.KindInputInvalid, "failed to load manifest", err))
	}
	// Empty requirements is a valid boundary case, not an error (spec.md
	// section 8): it resolves to coverage 1.0, an empty result list, and
	// status "ok" rather than being rejected here.

	domain := req.Domain
	if domain == "" {
		domain = manifest.Domain
	}
	if domain == "" {
		detected, confidence := DetectDomain(manifest.Tags)
		domain = string(detected)
		log.Infow("domain inferred from manifest tags", "domain", domain, "confidence", confidence)
	}

	effectiveCfg := s.effectiveConfig(domain, req.QualityLevel, req.Strict)

	if req.Strict && s.llm == nil {
		return failedReport(errs.New(errs.KindLLMUnavailable, "strict mode requires an LLM adapter but none is configured"))
	}

	facilities, err := s.resolveFacilities(ctx, req, domain)
	if err != nil {
		return failedReport(errs.Wrap(errs.KindInputInvalid, "failed to resolve facilities", err))
	}
	if len(facilities) == 0 {
		return failedReport(errs.New(errs.KindInputInvalid, "no facilities resolved for domain "+domain))
	}

	reqTokens := s.requirementTokens(manifest.Requirements)

	report := MatchingReport{
		FacilityResults: make(map[string][]types.NormalizedMatchResult),
		LayerMetrics:    make(map[string]map[types.LayerType]provenance.LayerCounters),
	}

	var aggErr error
	successCount := 0

	for _, facility := range facilities {
		capTokens := s.capabilityTokens(facility.Capabilities)
		track := provenance.NewTracker()
		orch := s.buildOrchestrator(effectiveCfg, domain, track)

		result, runErr := orch.Run(ctx, reqTokens, capTokens)
		report.Operations = append(report.Operations, track.Operations()...)
		report.LayerMetrics[facility.ID] = track.LayerMetrics()

		if runErr != nil {
			aggErr = multierr.Append(aggErr, fmt.Errorf("facility %s: %w", facility.ID, runErr))
			report.Errors = append(report.Errors, fmt.Sprintf("facility %s: %v", facility.ID, runErr))
			continue
		}

		report.FacilityResults[facility.ID] = result.Results
		successCount++
	}

	switch {
	case successCount == 0:
		report.Status = "failed"
	case aggErr != nil:
		report.Status = "partial"
	default:
		report.Status = "ok"
	}
	return report
}

// MatchProcess is the convenience wrapper running layers 1-2 with early
// exit on the first match (spec.md section 4.10: "match_process(req, cap,
// domain) -> bool").
func (s *Service) MatchProcess(ctx context.Context, requirement, capability, domain string) bool {
	reqTokens := s.requirementTokens([]RequirementSpec{{Text: requirement}})
	capTokens := s.capabilityTokens([]string{capability})

	direct := matching.NewDirectMatcher(matching.DirectConfig{NearMissThreshold: s.cfg.NearMissThreshold})
	for _, r := range direct.Match(ctx, reqTokens, capTokens) {
		if r.Matched {
			return true
		}
	}

	if s.rules != nil {
		heuristic := matching.NewHeuristicMatcher(s.rules, domain)
		for _, r := range heuristic.Match(ctx, reqTokens, capTokens) {
			if r.Matched {
				return true
			}
		}
	}
	return false
}

// GenerateSupplyTree runs the full layer pipeline for one facility and
// builds its SupplyTree (spec.md section 4.10:
// "generate_supply_tree(manifest, facility) -> SupplyTree").
func (s *Service) GenerateSupplyTree(ctx context.Context, manifestID, facilityID string) (supplytree.SupplyTree, error) {
	manifest, err := s.source.GetManifest(ctx, manifestID)
	if err != nil {
		return supplytree.SupplyTree{}, errs.Wrap(errs.KindInputInvalid, "failed to load manifest", err)
	}
	facility, err := s.source.GetFacility(ctx, facilityID)
	if err != nil {
		return supplytree.SupplyTree{}, errs.Wrap(errs.KindInputInvalid, "failed to load facility", err)
	}

	domain := manifest.Domain
	if domain == "" {
		domain = facility.Domain
	}
	if domain == "" {
		detected, _ := DetectDomain(manifest.Tags)
		domain = string(detected)
	}

	reqTokens := s.requirementTokens(manifest.Requirements)
	capTokens := s.capabilityTokens(facility.Capabilities)

	track := provenance.NewTracker()
	orch := s.buildOrchestrator(s.effectiveConfig(domain, "", false), domain, track)

	start := track.Start("generate_supply_tree", "", map[string]int{"requirements": len(reqTokens), "capabilities": len(capTokens)})
	result, err := orch.Run(ctx, reqTokens, capTokens)
	if err != nil {
		track.Fail(start, err)
		return supplytree.SupplyTree{}, errs.Wrap(errs.KindLayerFailed, "orchestrator run failed", err)
	}
	track.Complete(start, map[string]float64{"results": float64(len(result.Results))})

	stCfg := supplytree.DefaultConfig()
	stCfg.CoverageThresholdToMatch = s.cfg.MatchThreshold
	stCfg.MinCoverage = s.cfg.CoverageThreshold

	duration := float64(result.EndedAt.Sub(result.StartedAt).Microseconds()) / 1000.0
	tree := supplytree.Build(stCfg, facilityID, reqTokens, result.Results, duration)
	return tree, nil
}

func failedReport(err error) MatchingReport {
	return MatchingReport{Status: "failed", Errors: []string{err.Error()}}
}

func (s *Service) effectiveConfig(domain string, quality config.QualityLevel, strict bool) *config.Config {
	cp := *s.cfg
	cp.Domain = config.Domain(domain)
	if quality != "" {
		cp.ApplyQualityPreset(config.NormalizeQualityLevel(string(quality)))
	}
	if strict {
		cp.StrictMode = true
	}
	return &cp
}

func (s *Service) resolveFacilities(ctx context.Context, req MatchRequirementsRequest, domain string) ([]Facility, error) {
	if req.FacilityID != "" {
		f, err := s.source.GetFacility(ctx, req.FacilityID)
		if err != nil {
			return nil, err
		}
		return []Facility{f}, nil
	}
	if len(req.FacilitySet) > 0 {
		out := make([]Facility, 0, len(req.FacilitySet))
		for _, id := range req.FacilitySet {
			f, err := s.source.GetFacility(ctx, id)
			if err != nil {
				return nil, err
			}
			out = append(out, f)
		}
		return out, nil
	}
	return s.source.ListFacilities(ctx, FacilityFilter{Domain: domain})
}

func (s *Service) requirementTokens(specs []RequirementSpec) []types.RequirementToken {
	out := make([]types.RequirementToken, 0, len(specs))
	for _, spec := range specs {
		out = append(out, types.RequirementToken{
			Raw:         spec.Text,
			Normalized:  types.NormalizeToken(s.taxonomy, spec.Text),
			Criticality: spec.Criticality,
		})
	}
	return out
}

func (s *Service) capabilityTokens(raw []string) []types.CapabilityToken {
	out := make([]types.CapabilityToken, 0, len(raw))
	for _, c := range raw {
		out = append(out, types.CapabilityToken{
			Raw:        c,
			Normalized: types.NormalizeToken(s.taxonomy, c),
		})
	}
	return out
}

// buildOrchestrator wires the four layers into a fresh Orchestrator for one
// run, honoring strict_mode's "forces all configured layers" rule (spec.md
// section 6): when strict and an LLM adapter is configured, the LLM layer
// is always included regardless of cfg.LLM.Enabled.
func (s *Service) buildOrchestrator(cfg *config.Config, domain string, track *provenance.Tracker) *matching.Orchestrator {
	layers := map[types.LayerType]matching.Layer{
		types.LayerDirect:    matching.WrapDirect(matching.NewDirectMatcher(matching.DirectConfig{NearMissThreshold: cfg.NearMissThreshold})),
		types.LayerHeuristic: matching.WrapHeuristic(matching.NewHeuristicMatcher(s.rules, domain)),
		types.LayerNLP:       matching.WrapNLP(matching.NewNLPMatcher(matching.NLPConfig{SimilarityThreshold: cfg.SimilarityThreshold, Domain: domain}, s.embed)),
	}

	if s.llm != nil && (cfg.LLM.Enabled || cfg.StrictMode) {
		layers[types.LayerLLM] = matching.WrapLLM(matching.NewLLMMatcher(matching.LLMConfig{MaxPromptChars: cfg.LLM.MaxPromptChars, Domain: domain}, s.llm))
	}

	return matching.NewOrchestrator(cfg, layers, track)
}
