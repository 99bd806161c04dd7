package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/helpfulengineering/ome-matching-core/internal/logging"
)

// OllamaEngine generates embeddings using a local Ollama server. Adapted
// from the teacher's internal/embedding Ollama backend; unchanged wire
// protocol, rewired to the category logger and the Engine contract's
// Close method.
type OllamaEngine struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewOllamaEngine creates a new Ollama embedding engine.
func NewOllamaEngine(endpoint, model string) (*OllamaEngine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewOllamaEngine")
	defer timer.Stop()

	log := logging.Get(logging.CategoryEmbedding)

	if endpoint == "" {
		endpoint = "http://localhost:11434"
		log.Debugw("ollama endpoint defaulted", "endpoint", endpoint)
	}
	if model == "" {
		model = "embeddinggemma"
		log.Debugw("ollama model defaulted", "model", model)
	}

	log.Infow("creating ollama engine", "endpoint", endpoint, "model", model, "timeout", "30s")

	engine := &OllamaEngine{
		endpoint: endpoint,
		model:    model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	return engine, nil
}

// Embed generates an embedding for a single text.
func (e *OllamaEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "Ollama.Embed")
	defer timer.Stop()

	log := logging.Get(logging.CategoryEmbedding)
	log.Debugw("embed request starting", "text_length", len(text))

	req := ollamaEmbedRequest{
		Model:  e.model,
		Prompt: text,
	}

	body, err := json.Marshal(req)
	if err != nil {
		log.Errorw("failed to marshal request", "error", err)
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	apiStart := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		log.Errorw("failed to create http request", "error", err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	apiLatency := time.Since(apiStart)
	if err != nil {
		log.Errorw("ollama request failed", "latency", apiLatency, "error", err)
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	log.Debugw("ollama api response received", "latency", apiLatency, "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		log.Errorw("ollama returned non-OK status", "status", resp.StatusCode, "body", string(bodyBytes))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Errorw("failed to decode response", "error", err)
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	log.Infow("embed completed", "dimensions", len(result.Embedding), "api_latency", apiLatency)
	return result.Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts. Ollama has no native
// batch endpoint, so texts are embedded sequentially.
func (e *OllamaEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "Ollama.EmbedBatch")
	defer timer.Stop()

	log := logging.Get(logging.CategoryEmbedding)
	log.Infow("batch embed starting", "count", len(texts))

	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := e.Embed(ctx, text)
		if err != nil {
			log.Errorw("batch embed failed", "index", i, "error", err)
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		embeddings[i] = embedding
	}

	log.Infow("batch embed completed", "count", len(texts))
	return embeddings, nil
}

// Dimensions returns 768, the dimensionality of embeddinggemma vectors. The
// value is fixed; it is not derived from the configured model.
func (e *OllamaEngine) Dimensions() int {
	return 768
}

// Name returns the engine name.
func (e *OllamaEngine) Name() string {
	return fmt.Sprintf("ollama:%s", e.model)
}

// Close releases the HTTP client's idle connections. Ollama holds no other
// process-level state.
func (e *OllamaEngine) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}
