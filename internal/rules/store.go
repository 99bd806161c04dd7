package rules

import (
	"sort"
	"sync/atomic"

	"github.com/helpfulengineering/ome-matching-core/internal/errs"
	"github.com/helpfulengineering/ome-matching-core/internal/logging"
)

// Store owns the rule snapshot behind a single atomic pointer, the same
// single-writer/many-reader discipline as taxonomy.Registry (spec.md section
// 4.2: "reload(): same atomic-swap discipline as Taxonomy").
type Store struct {
	root string
	cur  atomic.Pointer[snapshot]
}

// LoadAll reads one YAML file per domain from root (spec.md section 4.2) and
// returns a ready Store.
func LoadAll(root string) (*Store, error) {
	files, err := loadAll(root)
	if err != nil {
		return nil, errs.Wrap(errs.KindRulesLoadFailed, "initial rules load failed", err)
	}
	snap, err := buildSnapshot(files)
	if err != nil {
		return nil, errs.Wrap(errs.KindRulesLoadFailed, "invalid rule definitions", err)
	}
	s := &Store{root: root}
	s.cur.Store(snap)
	logging.Get(logging.CategoryRules).Infow("rules loaded", "root", root, "domains", len(snap.sets))
	return s, nil
}

// NewFromRuleSets builds a Store directly from in-memory RuleSets, for tests
// and embedders that do not read YAML from disk.
func NewFromRuleSets(sets map[string]RuleSet) (*Store, error) {
	files := make(map[string]file, len(sets))
	for domain, rs := range sets {
		files[domain] = file{Domain: rs.Domain, Version: rs.Version, Description: rs.Description, Rules: rs.Rules}
	}
	snap, err := buildSnapshot(files)
	if err != nil {
		return nil, errs.Wrap(errs.KindRulesLoadFailed, "invalid rule definitions", err)
	}
	s := &Store{}
	s.cur.Store(snap)
	return s, nil
}

// Reload rebuilds every domain's RuleSet from disk and, if validation
// passes, atomically swaps the snapshot in. On failure the previous snapshot
// remains active (spec.md section 4.2: "a malformed rule file aborts that
// reload; the previous snapshot remains active").
func (s *Store) Reload() error {
	if s.root == "" {
		return errs.New(errs.KindRulesLoadFailed, "store has no backing root directory")
	}
	files, err := loadAll(s.root)
	if err != nil {
		logging.Get(logging.CategoryRules).Warnw("rules reload failed, keeping active snapshot", "error", err)
		return errs.Wrap(errs.KindRulesLoadFailed, "rules reload failed", err)
	}
	snap, err := buildSnapshot(files)
	if err != nil {
		logging.Get(logging.CategoryRules).Warnw("rules reload failed validation, keeping active snapshot", "error", err)
		return errs.Wrap(errs.KindRulesLoadFailed, "rules reload failed validation", err)
	}
	s.cur.Store(snap)
	logging.Get(logging.CategoryRules).Infow("rules reloaded", "root", s.root, "domains", len(snap.sets))
	return nil
}

func (s *Store) snap() *snapshot {
	return s.cur.Load()
}

// RuleSet returns the RuleSet for domain, if loaded.
func (s *Store) RuleSet(domain string) (*RuleSet, bool) {
	rs, ok := s.snap().sets[domain]
	return rs, ok
}

// FindRules returns the rules in domain whose capability equals the
// normalized capability and whose satisfies_requirements contains the
// normalized requirement, ordered by descending confidence then rule id
// (spec.md section 4.2). capability and requirement should already be
// normalized via a taxonomy.Registry (types.NormalizeToken); this function
// additionally case-folds and whitespace-collapses them for index lookup.
func (s *Store) FindRules(domain, capability, requirement string) []CapabilityRule {
	snap := s.snap()
	rs, ok := snap.sets[domain]
	if !ok {
		return nil
	}

	capIdx, ok := snap.byCapability[domain]
	if !ok {
		return nil
	}
	candidateIDs := capIdx[normalizeKey(capability)]
	if len(candidateIDs) == 0 {
		return nil
	}

	reqKey := normalizeKey(requirement)
	var out []CapabilityRule
	for _, id := range candidateIDs {
		rule, ok := lookupRule(rs, id)
		if !ok {
			continue
		}
		for _, req := range rule.SatisfiesRequirements {
			if normalizeKey(req) == reqKey {
				out = append(out, rule)
				break
			}
		}
	}
	return out
}

// CapabilitiesFor returns, for domain, every rule satisfying the normalized
// requirement (spec.md section 4.2: "which capabilities satisfy requirement
// R?" bidirectional query), ordered by descending confidence then rule id.
func (s *Store) CapabilitiesFor(domain, requirement string) []CapabilityRule {
	snap := s.snap()
	rs, ok := snap.sets[domain]
	if !ok {
		return nil
	}
	reqIdx, ok := snap.byRequirement[domain]
	if !ok {
		return nil
	}
	ids := reqIdx[normalizeKey(requirement)]
	out := make([]CapabilityRule, 0, len(ids))
	for _, id := range ids {
		if rule, ok := lookupRule(rs, id); ok {
			out = append(out, rule)
		}
	}
	return out
}

func lookupRule(rs *RuleSet, id string) (CapabilityRule, bool) {
	for key, rule := range rs.Rules {
		effID := rule.ID
		if effID == "" {
			effID = key
		}
		if effID == id {
			return rule, true
		}
	}
	return CapabilityRule{}, false
}

// Domains returns every loaded domain name, sorted.
func (s *Store) Domains() []string {
	snap := s.snap()
	out := make([]string, 0, len(snap.sets))
	for d := range snap.sets {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
