package rules

import (
	"fmt"
	"sort"
)

// snapshot is the immutable, validated view of every domain's RuleSet at a
// point in time, plus the inverted indexes find_rules and the bidirectional
// capability<->requirement query need (spec.md section 4.2: "Bidirectional
// query is allowed").
type snapshot struct {
	sets map[string]*RuleSet // domain -> RuleSet

	// byCapability[domain][capability] -> rule ids, ordered by descending
	// confidence then lexicographic id (spec.md section 4.2: "Deterministic
	// order: by descending confidence, ties broken by rule id
	// lexicographically").
	byCapability map[string]map[string][]string
	// byRequirement is the inverse index: "which capabilities satisfy
	// requirement R" (spec.md section 4.2, bidirectional query).
	byRequirement map[string]map[string][]string
}

func buildSnapshot(files map[string]file) (*snapshot, error) {
	s := &snapshot{
		sets:          make(map[string]*RuleSet, len(files)),
		byCapability:  make(map[string]map[string][]string),
		byRequirement: make(map[string]map[string][]string),
	}

	for domain, f := range files {
		rs := &RuleSet{Domain: f.Domain, Version: f.Version, Description: f.Description, Rules: f.Rules}
		if rs.Domain == "" {
			rs.Domain = domain
		}

		seen := make(map[string]bool, len(f.Rules))
		for key, rule := range f.Rules {
			id := rule.ID
			if id == "" {
				id = key
			}
			if seen[id] {
				return nil, fmt.Errorf("domain %q: duplicate rule id %q", domain, id)
			}
			seen[id] = true
			if rule.Confidence < 0 || rule.Confidence > 1 {
				return nil, fmt.Errorf("domain %q: rule %q has confidence %.3f outside [0,1]", domain, id, rule.Confidence)
			}
			if rule.Capability == "" {
				return nil, fmt.Errorf("domain %q: rule %q has empty capability", domain, id)
			}
			if len(rule.SatisfiesRequirements) == 0 {
				return nil, fmt.Errorf("domain %q: rule %q has no satisfies_requirements", domain, id)
			}
		}

		s.sets[domain] = rs

		capIdx := make(map[string][]string)
		reqIdx := make(map[string][]string)
		for key, rule := range f.Rules {
			id := rule.ID
			if id == "" {
				id = key
			}
			capKey := normalizeKey(rule.Capability)
			capIdx[capKey] = append(capIdx[capKey], id)
			for _, req := range rule.SatisfiesRequirements {
				reqKey := normalizeKey(req)
				reqIdx[reqKey] = append(reqIdx[reqKey], id)
			}
		}
		s.byCapability[domain] = capIdx
		s.byRequirement[domain] = reqIdx
	}

	s.sortIndexesBy(func(domain, id string) float64 {
		return s.sets[domain].Rules[idToKey(s.sets[domain], id)].Confidence
	})

	return s, nil
}

// idToKey finds the map key under which a rule with the given id is stored
// (the YAML map key and rule.ID may differ if the rule omits id).
func idToKey(rs *RuleSet, id string) string {
	for key, rule := range rs.Rules {
		effID := rule.ID
		if effID == "" {
			effID = key
		}
		if effID == id {
			return key
		}
	}
	return id
}

func (s *snapshot) sortIndexesBy(confidenceOf func(domain, id string) float64) {
	sortEntry := func(domain string, ids []string) {
		sort.Slice(ids, func(i, j int) bool {
			ci, cj := confidenceOf(domain, ids[i]), confidenceOf(domain, ids[j])
			if ci != cj {
				return ci > cj
			}
			return ids[i] < ids[j]
		})
	}
	for domain, idx := range s.byCapability {
		for _, ids := range idx {
			sortEntry(domain, ids)
		}
	}
	for domain, idx := range s.byRequirement {
		for _, ids := range idx {
			sortEntry(domain, ids)
		}
	}
}

func normalizeKey(s string) string {
	return collapseAndFold(s)
}
