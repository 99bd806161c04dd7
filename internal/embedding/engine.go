// Package embedding provides the optional vector similarity backend
// injected into Layer 3 (spec.md section 4.5: "Compute base semantic
// similarity on enhanced texts using an injected embedding/similarity
// backend"). Adapted from the teacher's internal/embedding package: same
// Engine interface and factory shape, trimmed to the Ollama backend (the
// GenAI backend is dropped — see DESIGN.md, "LLM provider integration
// beyond the adapter contract" is out of core scope per spec.md section 1,
// and the same reasoning applies to a cloud embedding SDK).
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/helpfulengineering/ome-matching-core/internal/logging"
)

// Engine generates vector embeddings for text and is created once per
// process, then reused (spec.md section 4.5: "the similarity backend is
// created once and reused; cold-start overhead must not be paid per call").
type Engine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
	// Close releases any held resources (spec.md section 4.5: "close()
	// releases the backend and resets lazy state").
	Close() error
}

// HealthChecker is an optional capability an Engine may implement so the
// NLP layer can verify availability before falling back.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config selects and configures an embedding backend.
type Config struct {
	Provider       string // "ollama" or "none"
	OllamaEndpoint string
	OllamaModel    string
}

// DefaultConfig returns the spec default: no backend configured, so the NLP
// layer falls back to token similarity (spec.md section 4.5).
func DefaultConfig() Config {
	return Config{Provider: "none"}
}

// NewEngine creates an embedding engine based on configuration, or
// (nil, nil) if Provider is "none"/empty — callers should treat a nil Engine
// as "use the fallback similarity".
func NewEngine(cfg Config) (Engine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	log := logging.Get(logging.CategoryEmbedding)
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "ollama":
		log.Infow("initializing ollama embedding engine", "endpoint", cfg.OllamaEndpoint, "model", cfg.OllamaModel)
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'none')", cfg.Provider)
	}
}

// CosineSimilarity returns the cosine similarity of a and b, in [-1, 1].
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aMag += float64(a[i]) * float64(a[i])
		bMag += float64(b[i]) * float64(b[i])
	}
	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}
