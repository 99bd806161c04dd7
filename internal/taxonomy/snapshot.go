package taxonomy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var snakeCaseRE = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+)*$`)

// snapshot is the immutable, validated view of the taxonomy at a point in
// time (spec.md section 3: "Taxonomy — snapshot of all ProcessDefinitions
// plus derived lookups"). A snapshot is never mutated after construction;
// Registry.Reload builds a new one and swaps it in atomically.
type snapshot struct {
	byID      map[string]*ProcessDefinition
	aliasToID map[string]string // case-folded, whitespace-normalized alias -> id
	children  map[string][]string
}

// buildSnapshot constructs and validates a snapshot from raw definitions. It
// never mutates defs.
func buildSnapshot(defs []ProcessDefinition) (*snapshot, error) {
	s := &snapshot{
		byID:      make(map[string]*ProcessDefinition, len(defs)),
		aliasToID: make(map[string]string),
		children:  make(map[string][]string),
	}

	for i := range defs {
		d := defs[i]
		if _, exists := s.byID[d.ID]; exists {
			return nil, fmt.Errorf("duplicate process id %q", d.ID)
		}
		if !snakeCaseRE.MatchString(d.ID) {
			return nil, fmt.Errorf("process id %q is not snake_case", d.ID)
		}
		if strings.TrimSpace(d.DisplayName) == "" {
			return nil, fmt.Errorf("process %q has empty display_name", d.ID)
		}
		cp := d
		s.byID[d.ID] = &cp
	}

	for id, d := range s.byID {
		if d.ParentID != "" {
			if _, ok := s.byID[d.ParentID]; !ok {
				return nil, fmt.Errorf("process %q references unknown parent %q", id, d.ParentID)
			}
		}
	}

	if err := checkNoCycles(s.byID); err != nil {
		return nil, err
	}

	for id, d := range s.byID {
		aliases := append([]string{id, d.DisplayName}, d.Aliases...)
		for _, alias := range aliases {
			key := foldAlias(alias)
			if key == "" {
				continue
			}
			if existing, ok := s.aliasToID[key]; ok && existing != id {
				return nil, fmt.Errorf("alias %q claimed by both %q and %q", alias, existing, id)
			}
			s.aliasToID[key] = id
		}
		if d.ParentID != "" {
			s.children[d.ParentID] = append(s.children[d.ParentID], id)
		}
	}

	for parent := range s.children {
		sort.Strings(s.children[parent])
	}

	return s, nil
}

func checkNoCycles(byID map[string]*ProcessDefinition) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make(map[string]int, len(byID))

	var visit func(id string, path []string) error
	visit = func(id string, path []string) error {
		switch state[id] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("cycle detected in process hierarchy: %s -> %s", strings.Join(path, " -> "), id)
		}
		state[id] = gray
		if d, ok := byID[id]; ok && d.ParentID != "" {
			if err := visit(d.ParentID, append(path, id)); err != nil {
				return err
			}
		}
		state[id] = black
		return nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := visit(id, nil); err != nil {
			return err
		}
	}
	return nil
}

// foldAlias case-folds and whitespace-collapses alias for lookup (spec.md
// section 3: "no two definitions share an alias (case-folded,
// whitespace-normalized)").
func foldAlias(alias string) string {
	return collapseWhitespace(strings.ToLower(strings.TrimSpace(alias)))
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func (s *snapshot) ancestors(id string) []string {
	var out []string
	cur := s.byID[id]
	for cur != nil && cur.ParentID != "" {
		out = append(out, cur.ParentID)
		cur = s.byID[cur.ParentID]
	}
	return out
}

// tsdcCode resolves the effective TSDC code for id, inheriting the nearest
// ancestor's code when id's own is unset (spec.md section 4.1: "child
// inherits parent's TSDC if unset").
func (s *snapshot) tsdcCode(id string) (string, bool) {
	cur := s.byID[id]
	for cur != nil {
		if cur.TSDCCode != "" {
			return cur.TSDCCode, true
		}
		if cur.ParentID == "" {
			return "", false
		}
		cur = s.byID[cur.ParentID]
	}
	return "", false
}
