// Package llm defines the Layer 4 LLM adapter contract (spec.md section
// 4.6) and a rate-limited wrapper around it. Grounded on the teacher's
// internal/perception.LLMClient / ClaudeCodeCLIClient shape: a narrow
// Complete-style interface, a typed RateLimitError, bounded-timeout calls.
// No concrete provider ships here; callers inject an Adapter (or none, in
// which case the Layer 4 matcher reports llm_unavailable).
package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/helpfulengineering/ome-matching-core/internal/logging"
)

// Params bounds a single generation call.
type Params struct {
	MaxPromptChars int
	Temperature    float64
}

// Response is the adapter's structured output (spec.md section 4.6).
type Response struct {
	Text       string
	TokensUsed int
	Cost       float64
}

// Adapter is the minimal interface a Layer 4 LLM backend must satisfy.
// Mirrors the teacher's LLMClient.Complete contract, generalized to return
// token/cost accounting alongside text.
type Adapter interface {
	Generate(ctx context.Context, prompt string, params Params) (Response, error)
}

// RateLimitError indicates the adapter rejected a call due to rate
// limiting. Mirrors the teacher's perception.RateLimitError so callers can
// use errors.As to detect and back off.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %v", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Provider)
}

// RateLimited wraps an Adapter with a token-bucket limiter (spec.md section
// 5: LLM adapter calls are a suspension point; section 6 configures
// rate_limit_per_second / rate_limit_burst).
type RateLimited struct {
	adapter Adapter
	limiter *rate.Limiter
}

// NewRateLimited builds a RateLimited adapter. perSecond <= 0 disables
// limiting (the wrapped adapter is called directly).
func NewRateLimited(adapter Adapter, perSecond float64, burst int) *RateLimited {
	if perSecond <= 0 {
		return &RateLimited{adapter: adapter, limiter: nil}
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{adapter: adapter, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Generate blocks until the limiter admits the call (or ctx is done), then
// delegates to the wrapped adapter.
func (r *RateLimited) Generate(ctx context.Context, prompt string, params Params) (Response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			logging.Get(logging.CategoryLLM).Errorw("rate limiter wait failed", "error", err)
			return Response{}, &RateLimitError{Provider: "llm"}
		}
	}
	return r.adapter.Generate(ctx, prompt, params)
}

// TruncatePrompt bounds prompt to maxChars, matching the teacher's
// truncateString helper (spec.md section 4.6: "submits a bounded prompt").
func TruncatePrompt(prompt string, maxChars int) string {
	if maxChars <= 0 || len(prompt) <= maxChars {
		return prompt
	}
	if maxChars <= 3 {
		return prompt[:maxChars]
	}
	return prompt[:maxChars-3] + "..."
}
