package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRuleSets() map[string]RuleSet {
	return map[string]RuleSet{
		"manufacturing": {
			Domain:  "manufacturing",
			Version: "1.0",
			Rules: map[string]CapabilityRule{
				"cnc_machining_capability": {
					ID:                    "cnc_machining_capability",
					Capability:            "cnc machining",
					SatisfiesRequirements: []string{"milling", "turning"},
					Confidence:            0.95,
					Domain:                "manufacturing",
				},
				"fdm_printing_capability": {
					ID:                    "fdm_printing_capability",
					Capability:            "fdm 3d printing",
					SatisfiesRequirements: []string{"3d printing", "prototyping"},
					Confidence:            0.9,
					Domain:                "manufacturing",
				},
				"cnc_alt_capability": {
					ID:                    "cnc_alt_capability",
					Capability:            "cnc machining",
					SatisfiesRequirements: []string{"milling"},
					Confidence:            0.95,
					Domain:                "manufacturing",
				},
			},
		},
	}
}

func TestFindRulesMatchesAndOrders(t *testing.T) {
	store, err := NewFromRuleSets(sampleRuleSets())
	require.NoError(t, err)

	rules := store.FindRules("manufacturing", "CNC Machining", "milling")
	require.Len(t, rules, 2)
	// Tie on confidence -> lexicographic id order.
	assert.Equal(t, "cnc_alt_capability", rules[0].ID)
	assert.Equal(t, "cnc_machining_capability", rules[1].ID)
}

func TestFindRulesNoMatch(t *testing.T) {
	store, err := NewFromRuleSets(sampleRuleSets())
	require.NoError(t, err)

	rules := store.FindRules("manufacturing", "cnc machining", "nonexistent requirement")
	assert.Empty(t, rules)
}

func TestCapabilitiesForBidirectionalQuery(t *testing.T) {
	store, err := NewFromRuleSets(sampleRuleSets())
	require.NoError(t, err)

	caps := store.CapabilitiesFor("manufacturing", "3D Printing")
	require.Len(t, caps, 1)
	assert.Equal(t, "fdm_printing_capability", caps[0].ID)
}

func TestNewFromRuleSetsRejectsOutOfRangeConfidence(t *testing.T) {
	_, err := NewFromRuleSets(map[string]RuleSet{
		"manufacturing": {
			Domain: "manufacturing",
			Rules: map[string]CapabilityRule{
				"bad": {ID: "bad", Capability: "x", SatisfiesRequirements: []string{"y"}, Confidence: 1.5},
			},
		},
	})
	assert.Error(t, err)
}

func TestReloadFailureIsolation(t *testing.T) {
	dir := t.TempDir()
	good := `
domain: manufacturing
version: "1.0"
rules:
  cnc_machining_capability:
    id: cnc_machining_capability
    capability: cnc machining
    satisfies_requirements: ["milling"]
    confidence: 0.95
    domain: manufacturing
`
	path := filepath.Join(dir, "manufacturing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(good), 0644))

	store, err := LoadAll(dir)
	require.NoError(t, err)

	before := store.FindRules("manufacturing", "cnc machining", "milling")
	require.Len(t, before, 1)

	malformed := "not: [valid: yaml: at all"
	require.NoError(t, os.WriteFile(path, []byte(malformed), 0644))

	err = store.Reload()
	assert.Error(t, err)

	after := store.FindRules("manufacturing", "cnc machining", "milling")
	assert.Equal(t, before, after)
}
