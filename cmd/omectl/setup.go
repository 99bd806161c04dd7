package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/helpfulengineering/ome-matching-core/internal/config"
	"github.com/helpfulengineering/ome-matching-core/internal/embedding"
	"github.com/helpfulengineering/ome-matching-core/internal/llm"
	"github.com/helpfulengineering/ome-matching-core/internal/rules"
	"github.com/helpfulengineering/ome-matching-core/internal/taxonomy"
	"github.com/helpfulengineering/ome-matching-core/pkg/facade"
)

// buildService wires a facade.Service from the workspace directory, the
// same layering the core library does on its own (taxonomy/processes.yaml,
// capability_rules/<domain>.yaml, optional config.yaml) plus a JSON-file
// facade.Source rooted at the same workspace.
func buildService() (*facade.Service, error) {
	ws := workspaceDir
	if ws == "" {
		var err error
		ws, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving workspace: %w", err)
		}
	}

	cfgFile := configPath
	if cfgFile == "" {
		candidate := filepath.Join(ws, "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			cfgFile = candidate
		}
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	taxPath := cfg.TaxonomyPath
	if !filepath.IsAbs(taxPath) {
		taxPath = filepath.Join(ws, taxPath)
	}
	taxReg, err := taxonomy.Load(taxPath)
	if err != nil {
		return nil, fmt.Errorf("loading taxonomy: %w", err)
	}

	rulesRoot := cfg.RulesRoot
	if !filepath.IsAbs(rulesRoot) {
		rulesRoot = filepath.Join(ws, rulesRoot)
	}
	ruleStore, err := rules.LoadAll(rulesRoot)
	if err != nil {
		return nil, fmt.Errorf("loading capability rules: %w", err)
	}

	var embedEngine embedding.Engine
	if cfg.Embedding.Provider == "ollama" {
		embedEngine, err = embedding.NewOllamaEngine(cfg.Embedding.OllamaEndpoint, cfg.Embedding.OllamaModel)
		if err != nil {
			return nil, fmt.Errorf("initializing embedding engine: %w", err)
		}
	}

	// No concrete LLM provider ships with this CLI; operators wire one in by
	// constructing their provider here and wrapping it with
	// llm.NewRateLimited before passing it to facade.NewService.
	var adapter llm.Adapter

	source := newFileSource(ws)

	return facade.NewService(cfg, taxReg, ruleStore, embedEngine, adapter, source), nil
}

// fileSource is a facade.Source backed by flat JSON files under
// <root>/manifests/<id>.json and <root>/facilities/<id>.json, enough to
// drive the CLI without requiring a real integration's Source.
type fileSource struct {
	root string
}

func newFileSource(root string) *fileSource {
	return &fileSource{root: root}
}

func (f *fileSource) GetManifest(_ context.Context, id string) (facade.Manifest, error) {
	var m facade.Manifest
	if err := readJSON(filepath.Join(f.root, "manifests", id+".json"), &m); err != nil {
		return facade.Manifest{}, err
	}
	m.ID = id
	return m, nil
}

func (f *fileSource) GetFacility(_ context.Context, id string) (facade.Facility, error) {
	var fac facade.Facility
	if err := readJSON(filepath.Join(f.root, "facilities", id+".json"), &fac); err != nil {
		return facade.Facility{}, err
	}
	fac.ID = id
	return fac, nil
}

func (f *fileSource) ListFacilities(ctx context.Context, filter facade.FacilityFilter) ([]facade.Facility, error) {
	dir := filepath.Join(f.root, "facilities")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing facilities: %w", err)
	}
	var out []facade.Facility
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id := fileStem(e.Name())
		fac, err := f.GetFacility(ctx, id)
		if err != nil {
			continue
		}
		if filter.Domain != "" && fac.Domain != "" && fac.Domain != filter.Domain {
			continue
		}
		out = append(out, fac)
	}
	return out, nil
}

func fileStem(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
