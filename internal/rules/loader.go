package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// loadAll reads one YAML file per domain from root and returns the parsed
// files keyed by domain (the file's base name, extension stripped). A
// malformed file fails the whole load (spec.md section 4.2: "Schema errors
// fail the whole load").
func loadAll(root string) (map[string]file, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading rules root %s: %w", root, err)
	}

	files := make(map[string]file)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		domain := strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml")
		path := filepath.Join(root, name)

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		var f file
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if f.Domain == "" {
			f.Domain = domain
		}
		files[f.Domain] = f
	}

	return files, nil
}

// ParseYAML parses a single domain's rule YAML bytes (spec.md section 6,
// "<domain>.yaml" shape), for callers sourcing files through the Storage
// interface instead of the filesystem.
func ParseYAML(domain string, data []byte) (RuleSet, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return RuleSet{}, fmt.Errorf("parsing rules for domain %s: %w", domain, err)
	}
	if f.Domain == "" {
		f.Domain = domain
	}
	return RuleSet{Domain: f.Domain, Version: f.Version, Description: f.Description, Rules: f.Rules}, nil
}
