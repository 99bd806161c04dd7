package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDefs() []ProcessDefinition {
	return []ProcessDefinition{
		{ID: "manufacturing", DisplayName: "Manufacturing"},
		{ID: "cnc_milling", DisplayName: "CNC Milling", ParentID: "manufacturing", TSDCCode: "CNC", Aliases: []string{"milling", "CNC_Milling"}},
		{ID: "pcb_assembly", DisplayName: "PCB Assembly", ParentID: "manufacturing", Aliases: []string{"PCB_assembly", "PCB"}},
		{ID: "threed_printing", DisplayName: "3D Printing", ParentID: "manufacturing", Aliases: []string{"3D printing", "3DP"}},
	}
}

func TestNormalizeCaseAndWhitespace(t *testing.T) {
	reg, err := NewFromDefinitions(sampleDefs())
	require.NoError(t, err)

	id, ok := reg.Normalize("  CNC   Milling  ")
	require.True(t, ok)
	assert.Equal(t, "cnc_milling", id)
}

func TestNormalizeURLSegmentExtraction(t *testing.T) {
	reg, err := NewFromDefinitions(sampleDefs())
	require.NoError(t, err)

	id, ok := reg.Normalize("https://en.wikipedia.org/wiki/PCB_assembly")
	require.True(t, ok)
	assert.Equal(t, "pcb_assembly", id)
}

func TestNormalizeUnknownReturnsFalseNeverPanics(t *testing.T) {
	reg, err := NewFromDefinitions(sampleDefs())
	require.NoError(t, err)

	_, ok := reg.Normalize("completely unknown process xyz")
	assert.False(t, ok)
}

func TestNormalizeShortInputNoSubstringMatch(t *testing.T) {
	reg, err := NewFromDefinitions(sampleDefs())
	require.NoError(t, err)

	// "cn" is length 2, must not substring-match "cnc_milling".
	_, ok := reg.Normalize("cn")
	assert.False(t, ok)
}

func TestTSDCInheritance(t *testing.T) {
	defs := sampleDefs()
	defs = append(defs, ProcessDefinition{ID: "cnc_milling_5axis", DisplayName: "5-Axis CNC Milling", ParentID: "cnc_milling"})
	reg, err := NewFromDefinitions(defs)
	require.NoError(t, err)

	code, ok := reg.TSDCCode("cnc_milling_5axis")
	require.True(t, ok)
	assert.Equal(t, "CNC", code)
}

func TestDisplayNameNormalizeRoundTrip(t *testing.T) {
	reg, err := NewFromDefinitions(sampleDefs())
	require.NoError(t, err)

	for id := range reg.snap().byID {
		name, ok := reg.DisplayName(id)
		require.True(t, ok)
		got, ok := reg.Normalize(name)
		require.True(t, ok)
		assert.Equal(t, id, got)
	}
}

func TestValidateRejectsDuplicateAlias(t *testing.T) {
	defs := []ProcessDefinition{
		{ID: "a", DisplayName: "A", Aliases: []string{"shared"}},
		{ID: "b", DisplayName: "B", Aliases: []string{"shared"}},
	}
	err := Validate(defs)
	assert.Error(t, err)
}

func TestValidateRejectsCycle(t *testing.T) {
	defs := []ProcessDefinition{
		{ID: "a", DisplayName: "A", ParentID: "b"},
		{ID: "b", DisplayName: "B", ParentID: "a"},
	}
	err := Validate(defs)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownParent(t *testing.T) {
	defs := []ProcessDefinition{
		{ID: "a", DisplayName: "A", ParentID: "ghost"},
	}
	err := Validate(defs)
	assert.Error(t, err)
}

func TestValidateRejectsNonSnakeCaseID(t *testing.T) {
	defs := []ProcessDefinition{{ID: "CNC-Milling", DisplayName: "x"}}
	err := Validate(defs)
	assert.Error(t, err)
}

func TestReloadFailureKeepsActiveSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processes.yaml")
	good := `
- id: cnc_milling
  display_name: CNC Milling
  aliases: ["milling"]
`
	require.NoError(t, os.WriteFile(path, []byte(good), 0644))

	reg, err := Load(path)
	require.NoError(t, err)

	before, ok := reg.Normalize("PCB")
	assert.False(t, ok)
	assert.Equal(t, "", before)

	bad := `
- id: cnc_milling
  display_name: CNC Milling
  aliases: ["milling"]
- id: other
  display_name: Other
  aliases: ["milling"]
`
	require.NoError(t, os.WriteFile(path, []byte(bad), 0644))

	err = reg.Reload()
	assert.Error(t, err)

	// Same outputs as before the failed reload.
	after, ok := reg.Normalize("PCB")
	assert.False(t, ok)
	assert.Equal(t, before, after)

	id, ok := reg.Normalize("milling")
	require.True(t, ok)
	assert.Equal(t, "cnc_milling", id)
}

func TestReloadSuccessIsVisible(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: cnc_milling
  display_name: CNC Milling
`), 0644))

	reg, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`
- id: cnc_milling
  display_name: CNC Milling
  aliases: ["milling"]
`), 0644))
	require.NoError(t, reg.Reload())

	id, ok := reg.Normalize("milling")
	require.True(t, ok)
	assert.Equal(t, "cnc_milling", id)
}
