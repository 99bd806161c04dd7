package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0.7, cfg.SimilarityThreshold)
	assert.Equal(t, 2, cfg.NearMissThreshold)
	assert.Equal(t, 0.7, cfg.MatchThreshold)
	assert.Equal(t, 0.5, cfg.NearMissMin)
	assert.Equal(t, 0.95, cfg.EarlyTerminateConfidence)
	assert.Equal(t, 0.8, cfg.CoverageThreshold)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().SimilarityThreshold, cfg.SimilarityThreshold)
}

func TestLoadParsesYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("similarity_threshold: 0.9\ndomain: cooking\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.SimilarityThreshold)
	assert.Equal(t, DomainCooking, cfg.Domain)
}

func TestNormalizeQualityLevelTranslatesLegacyEnum(t *testing.T) {
	assert.Equal(t, QualityHobby, NormalizeQualityLevel("basic"))
	assert.Equal(t, QualityProfessional, NormalizeQualityLevel("standard"))
	assert.Equal(t, QualityMedical, NormalizeQualityLevel("premium"))
	assert.Equal(t, QualityLevel("hobby"), NormalizeQualityLevel("hobby"))
}

func TestApplyQualityPresetOverwritesThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApplyQualityPreset(QualityMedical)
	assert.Equal(t, 0.85, cfg.SimilarityThreshold)
	assert.Equal(t, 0.95, cfg.CoverageThreshold)
	assert.Equal(t, QualityMedical, cfg.QualityLevel)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OME_DOMAIN", "cooking")
	t.Setenv("OME_STRICT_MODE", "true")
	t.Setenv("OME_SIMILARITY_THRESHOLD", "0.42")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DomainCooking, cfg.Domain)
	assert.True(t, cfg.StrictMode)
	assert.Equal(t, 0.42, cfg.SimilarityThreshold)
}
