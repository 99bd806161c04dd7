// Package config assembles the matching core's configuration object from
// defaults, an optional YAML file, and environment variable overrides,
// following the teacher's internal/config.Load layering (defaults -> YAML ->
// env) from codenerd's internal/config/config.go.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/helpfulengineering/ome-matching-core/internal/logging"
)

// Domain selects which rule set and NLP context enhancer is active.
type Domain string

const (
	DomainManufacturing Domain = "manufacturing"
	DomainCooking        Domain = "cooking"
)

// Strategy is the orchestration policy (spec section 4.7).
type Strategy string

const (
	StrategyParallel      Strategy = "parallel"
	StrategySequential    Strategy = "sequential"
	StrategyAdaptive      Strategy = "adaptive"
	StrategyCostOptimized Strategy = "cost_optimized"
)

// QualityLevel is the primary quality-level enum this module adopts (see
// DESIGN.md Open Question 1). The legacy {basic,standard,premium} enum is
// translated to this one at the config boundary.
type QualityLevel string

const (
	QualityHobby        QualityLevel = "hobby"
	QualityProfessional QualityLevel = "professional"
	QualityMedical      QualityLevel = "medical"
)

// legacyQualityAliases maps the alternate {basic,standard,premium} vocabulary
// (spec.md section 9, Open Question) onto QualityLevel.
var legacyQualityAliases = map[string]QualityLevel{
	"basic":    QualityHobby,
	"standard": QualityProfessional,
	"premium":  QualityMedical,
}

// Config is the single configuration object threaded through the core
// (spec section 6, "Configuration object").
type Config struct {
	SimilarityThreshold   float64      `yaml:"similarity_threshold"`
	NearMissThreshold     int          `yaml:"near_miss_threshold"`
	MatchThreshold        float64      `yaml:"match_threshold"`
	NearMissMin           float64      `yaml:"near_miss_min"`
	EarlyTerminateConfidence float64   `yaml:"early_terminate_confidence"`
	HighConfidenceThreshold float64    `yaml:"high_confidence_threshold"`
	CoverageThreshold     float64      `yaml:"coverage_threshold"`
	Domain                Domain       `yaml:"domain"`
	Strategy              Strategy     `yaml:"strategy"`
	StrictMode            bool         `yaml:"strict_mode"`
	QualityLevel          QualityLevel `yaml:"quality_level"`

	MaxComputeCost float64 `yaml:"max_compute_cost"`
	MaxLatencyMS   int     `yaml:"max_latency_ms"`
	MinAccuracy    float64 `yaml:"min_accuracy"`

	// NearMissHandlerLayer names the layer near-misses are routed to in
	// sequential/adaptive strategies (DESIGN.md Open Question 3).
	NearMissHandlerLayer string `yaml:"near_miss_handler_layer"`

	// MaxInFlightPairs is loaded and defaulted, but no component reads it:
	// in-flight per-(req,cap) work is not bounded, and each layer scores its
	// pairs one at a time.
	MaxInFlightPairs int `yaml:"max_in_flight_pairs"`

	RulesRoot    string `yaml:"rules_root"`
	TaxonomyPath string `yaml:"taxonomy_path"`

	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
}

// EmbeddingConfig configures the optional similarity backend (spec section
// 6, "Embedding Backend").
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "ollama", "none"
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
}

// LLMConfig configures the optional Layer 4 adapter (spec section 6, "LLM
// Adapter") and its rate limiter (spec section 5).
type LLMConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
	MaxPromptChars     int     `yaml:"max_prompt_chars"`
}

// qualityPresets maps quality_level to preset threshold values (spec section
// 6: "quality_level ... maps to preset values for the above").
var qualityPresets = map[QualityLevel]func(*Config){
	QualityHobby: func(c *Config) {
		c.SimilarityThreshold = 0.6
		c.MatchThreshold = 0.6
		c.CoverageThreshold = 0.6
	},
	QualityProfessional: func(c *Config) {
		c.SimilarityThreshold = 0.7
		c.MatchThreshold = 0.7
		c.CoverageThreshold = 0.8
	},
	QualityMedical: func(c *Config) {
		c.SimilarityThreshold = 0.85
		c.MatchThreshold = 0.85
		c.CoverageThreshold = 0.95
	},
}

// ApplyQualityPreset overwrites threshold fields with the preset for level,
// leaving other fields untouched. Unrecognized levels are a no-op.
func (c *Config) ApplyQualityPreset(level QualityLevel) {
	if preset, ok := qualityPresets[level]; ok {
		preset(c)
		c.QualityLevel = level
	}
}

// NormalizeQualityLevel translates the legacy {basic,standard,premium} enum
// to {hobby,professional,medical}, logging a deprecation notice. Unknown
// values pass through unchanged.
func NormalizeQualityLevel(raw string) QualityLevel {
	if mapped, ok := legacyQualityAliases[raw]; ok {
		logging.Get(logging.CategoryConfig).Warnw("quality_level uses deprecated vocabulary, translating",
			"raw", raw, "mapped", mapped)
		return mapped
	}
	return QualityLevel(raw)
}

// DefaultConfig returns the spec's documented defaults (spec section 6).
func DefaultConfig() *Config {
	return &Config{
		SimilarityThreshold:      0.7,
		NearMissThreshold:        2,
		MatchThreshold:           0.7,
		NearMissMin:              0.5,
		EarlyTerminateConfidence: 0.95,
		HighConfidenceThreshold:  0.9,
		CoverageThreshold:        0.8,
		Domain:                   DomainManufacturing,
		Strategy:                 StrategyAdaptive,
		StrictMode:               false,
		QualityLevel:             QualityProfessional,

		MaxComputeCost: 1.0,
		MaxLatencyMS:   30000,
		MinAccuracy:    0.8,

		NearMissHandlerLayer: "nlp",
		MaxInFlightPairs:     64,

		RulesRoot:    "capability_rules",
		TaxonomyPath: "taxonomy/processes.yaml",

		Embedding: EmbeddingConfig{
			Provider:       "none",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
		},
		LLM: LLMConfig{
			Enabled:            false,
			RateLimitPerSecond: 2,
			RateLimitBurst:     4,
			MaxPromptChars:     4000,
		},
	}
}

// Load reads configuration from a YAML file, falling back to defaults if the
// file does not exist, then applies environment overrides. Mirrors the
// teacher's internal/config.Load (defaults -> YAML -> env).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			logging.Get(logging.CategoryConfig).Infow("config file not found, using defaults", "path", path)
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cfg.QualityLevel != "" {
		cfg.QualityLevel = NormalizeQualityLevel(string(cfg.QualityLevel))
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides applies OME_*-prefixed environment variable overrides,
// mirroring the teacher's applyEnvOverrides convention.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OME_DOMAIN"); v != "" {
		c.Domain = Domain(v)
	}
	if v := os.Getenv("OME_STRATEGY"); v != "" {
		c.Strategy = Strategy(v)
	}
	if v := os.Getenv("OME_STRICT_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.StrictMode = b
		}
	}
	if v := os.Getenv("OME_QUALITY_LEVEL"); v != "" {
		c.ApplyQualityPreset(NormalizeQualityLevel(v))
	}
	if v := os.Getenv("OME_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.SimilarityThreshold = f
		}
	}
	if v := os.Getenv("OME_RULES_ROOT"); v != "" {
		c.RulesRoot = v
	}
	if v := os.Getenv("OME_TAXONOMY_PATH"); v != "" {
		c.TaxonomyPath = v
	}
	if v := os.Getenv("OME_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		c.Embedding.OllamaEndpoint = v
	}
	if v := os.Getenv("OME_LLM_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LLM.Enabled = b
		}
	}
}
