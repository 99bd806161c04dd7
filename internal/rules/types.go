// Package rules implements the capability-centric rule store (spec.md
// section 4.2, component C2): YAML-backed domain rules declaring which
// capabilities satisfy which requirements, loaded into immutable,
// hot-reloadable RuleSets with deterministic lookup.
package rules

// CapabilityRule declares that a capability satisfies a set of requirements
// at a given confidence (spec.md section 3).
type CapabilityRule struct {
	ID                    string   `yaml:"id"`
	Type                  string   `yaml:"type,omitempty"`
	Capability            string   `yaml:"capability"`
	SatisfiesRequirements []string `yaml:"satisfies_requirements"`
	Confidence            float64  `yaml:"confidence"`
	Domain                string   `yaml:"domain"`
	Description           string   `yaml:"description,omitempty"`
	Source                string   `yaml:"source,omitempty"`
	Tags                  []string `yaml:"tags,omitempty"`
}

// RuleSet groups rules by domain (spec.md section 3).
type RuleSet struct {
	Domain      string                     `yaml:"domain"`
	Version     string                     `yaml:"version"`
	Description string                     `yaml:"description"`
	Rules       map[string]CapabilityRule  `yaml:"rules"`
}

// file is the on-disk shape of capability_rules/<domain>.yaml (spec.md
// section 6).
type file struct {
	Domain      string                    `yaml:"domain"`
	Version     string                    `yaml:"version"`
	Description string                    `yaml:"description"`
	Rules       map[string]CapabilityRule `yaml:"rules"`
}
