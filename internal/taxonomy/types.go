// Package taxonomy implements the canonical process taxonomy (spec.md
// section 4.1, component C1): a controlled vocabulary of process IDs with
// aliases, parent/child hierarchy, and TSDC codes, loaded from YAML and
// hot-reloadable without ever exposing a torn snapshot to readers.
package taxonomy

// ProcessDefinition is an immutable canonical process record (spec.md
// section 3).
type ProcessDefinition struct {
	ID          string   `yaml:"id"`
	DisplayName string   `yaml:"display_name"`
	ParentID    string   `yaml:"parent,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty"`
	TSDCCode    string   `yaml:"tsdc_code,omitempty"`
}

// processes.yaml is a bare YAML list of ProcessDefinition records (spec.md
// section 6): "processes.yaml: list of records {id, display_name, parent?,
// aliases[], tsdc_code?}".
