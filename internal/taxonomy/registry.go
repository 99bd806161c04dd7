package taxonomy

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/helpfulengineering/ome-matching-core/internal/errs"
	"github.com/helpfulengineering/ome-matching-core/internal/logging"
)

// Registry owns the taxonomy's current snapshot behind a single atomic
// pointer (spec.md section 5: "single-writer reload() publishes a new
// snapshot by atomic pointer/reference swap so readers never observe a torn
// state"), grounded on the teacher's internal/perception.SharedTaxonomy
// load-once pattern, generalized to an injectable, reloadable instance
// rather than a package-global.
type Registry struct {
	path string
	cur  atomic.Pointer[snapshot]
}

// Load reads processes.yaml from path, validates it, and returns a ready
// Registry. An invalid initial file is a hard error — there is no prior
// snapshot to fall back to.
func Load(path string) (*Registry, error) {
	snap, err := loadSnapshot(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindTaxonomyLoadFailed, "initial taxonomy load failed", err)
	}
	r := &Registry{path: path}
	r.cur.Store(snap)
	logging.Get(logging.CategoryTaxonomy).Infow("taxonomy loaded", "path", path, "processes", len(snap.byID))
	return r, nil
}

// NewFromDefinitions builds a Registry directly from in-memory definitions,
// useful for tests and embedders that do not read YAML from disk.
func NewFromDefinitions(defs []ProcessDefinition) (*Registry, error) {
	snap, err := buildSnapshot(defs)
	if err != nil {
		return nil, errs.Wrap(errs.KindTaxonomyLoadFailed, "invalid taxonomy definitions", err)
	}
	r := &Registry{}
	r.cur.Store(snap)
	return r, nil
}

// LoadFromBytes builds a Registry from already-fetched processes.yaml
// bytes, for callers sourcing the file through the Storage interface
// instead of the filesystem. The resulting Registry has no backing path,
// so Reload returns an error (consistent with NewFromDefinitions).
func LoadFromBytes(data []byte) (*Registry, error) {
	var defs []ProcessDefinition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, errs.Wrap(errs.KindTaxonomyLoadFailed, "parsing taxonomy bytes", err)
	}
	return NewFromDefinitions(defs)
}

func loadSnapshot(path string) (*snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var defs []ProcessDefinition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return buildSnapshot(defs)
}

// Reload rebuilds the taxonomy from disk and, if the candidate validates,
// atomically swaps it in. On failure the active snapshot is untouched and a
// structured error is returned (spec.md section 4.1: "on failure keep
// current snapshot and return a structured error").
func (r *Registry) Reload() error {
	if r.path == "" {
		return errs.New(errs.KindTaxonomyLoadFailed, "registry has no backing file path")
	}
	snap, err := loadSnapshot(r.path)
	if err != nil {
		logging.Get(logging.CategoryTaxonomy).Warnw("taxonomy reload failed, keeping active snapshot", "error", err)
		return errs.Wrap(errs.KindTaxonomyLoadFailed, "taxonomy reload failed", err)
	}
	r.cur.Store(snap)
	logging.Get(logging.CategoryTaxonomy).Infow("taxonomy reloaded", "path", r.path, "processes", len(snap.byID))
	return nil
}

func (r *Registry) snap() *snapshot {
	return r.cur.Load()
}

// Normalize resolves input to a canonical process id, or ("", false) if it
// cannot be resolved (spec.md section 4.1). It never returns an error —
// unknown input is surfaced as a miss, not a failure.
func (r *Registry) Normalize(input string) (string, bool) {
	cleaned := collapseWhitespace(strings.TrimSpace(input))
	if cleaned == "" {
		return "", false
	}

	snap := r.snap()

	if id, ok := snap.aliasToID[foldAlias(cleaned)]; ok {
		return id, true
	}

	if seg := trailingURLSegment(cleaned); seg != "" && seg != cleaned {
		if id, ok := snap.aliasToID[foldAlias(seg)]; ok {
			return id, true
		}
	}

	// Substring matching is allowed only for inputs of length >= 3 (spec.md
	// section 4.1).
	if len(cleaned) >= 3 {
		folded := foldAlias(cleaned)
		var candidate string
		matches := 0
		for alias, id := range snap.aliasToID {
			if strings.Contains(alias, folded) || strings.Contains(folded, alias) {
				if len(alias) < 3 {
					continue
				}
				if candidate == "" || id < candidate {
					candidate = id
				}
				matches++
			}
		}
		if matches > 0 {
			return candidate, true
		}
	}

	return "", false
}

// trailingURLSegment extracts the final path segment of a URL-like string
// (spec.md section 4.1 example: ".../wiki/PCB_assembly" -> "PCB_assembly").
// Returns "" if input is not URL-like.
func trailingURLSegment(input string) string {
	if !strings.Contains(input, "/") {
		return ""
	}
	u, err := url.Parse(input)
	trimmed := strings.TrimRight(input, "/")
	if err == nil && u.Scheme != "" {
		parts := strings.Split(strings.TrimRight(u.Path, "/"), "/")
		if len(parts) > 0 {
			return parts[len(parts)-1]
		}
	}
	parts := strings.Split(trimmed, "/")
	return parts[len(parts)-1]
}

// DisplayName returns the human-readable name for id.
func (r *Registry) DisplayName(id string) (string, bool) {
	d, ok := r.snap().byID[id]
	if !ok {
		return "", false
	}
	return d.DisplayName, true
}

// Parent returns id's parent id, or ("", false) if id is unknown or has no
// parent.
func (r *Registry) Parent(id string) (string, bool) {
	d, ok := r.snap().byID[id]
	if !ok || d.ParentID == "" {
		return "", false
	}
	return d.ParentID, true
}

// Children returns the direct children of id, sorted for determinism.
func (r *Registry) Children(id string) []string {
	return append([]string(nil), r.snap().children[id]...)
}

// Ancestors returns id's ancestor chain, nearest first.
func (r *Registry) Ancestors(id string) []string {
	return r.snap().ancestors(id)
}

// TSDCCode returns id's effective TSDC code, inheriting from the nearest
// ancestor if id's own is unset.
func (r *Registry) TSDCCode(id string) (string, bool) {
	return r.snap().tsdcCode(id)
}

// Exists reports whether id is a known canonical process id.
func (r *Registry) Exists(id string) bool {
	_, ok := r.snap().byID[id]
	return ok
}

// Validate reports whether defs would build a valid snapshot (unique
// snake_case ids, known parents, no cycles, non-empty display names, no
// alias collisions). It does not read or change any Registry.
func Validate(defs []ProcessDefinition) error {
	_, err := buildSnapshot(defs)
	return err
}
