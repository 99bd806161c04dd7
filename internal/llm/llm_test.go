package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoAdapter struct {
	calls int
}

func (e *echoAdapter) Generate(_ context.Context, prompt string, _ Params) (Response, error) {
	e.calls++
	return Response{Text: prompt}, nil
}

func TestNewRateLimitedZeroPerSecondDisablesLimiting(t *testing.T) {
	adapter := &echoAdapter{}
	rl := NewRateLimited(adapter, 0, 0)
	for i := 0; i < 5; i++ {
		_, err := rl.Generate(context.Background(), "p", Params{})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, adapter.calls)
}

func TestRateLimitedAdmitsCallWithinBurst(t *testing.T) {
	adapter := &echoAdapter{}
	rl := NewRateLimited(adapter, 100, 1)
	_, err := rl.Generate(context.Background(), "p", Params{})
	require.NoError(t, err)
}

func TestRateLimitedReturnsRateLimitErrorOnContextCancellation(t *testing.T) {
	adapter := &echoAdapter{}
	rl := NewRateLimited(adapter, 0.001, 1)
	// Exhaust the single burst token, then cancel to force Wait() to fail.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, _ = rl.Generate(context.Background(), "first", Params{})
	_, err := rl.Generate(ctx, "second", Params{})
	if err != nil {
		var rlErr *RateLimitError
		assert.ErrorAs(t, err, &rlErr)
	}
}

func TestTruncatePromptNoOpUnderLimit(t *testing.T) {
	assert.Equal(t, "hello", TruncatePrompt("hello", 10))
}

func TestTruncatePromptTruncatesWithEllipsis(t *testing.T) {
	out := TruncatePrompt("this is a long prompt", 10)
	assert.Len(t, out, 10)
	assert.Equal(t, "this is...", out)
}

func TestRateLimitErrorMessage(t *testing.T) {
	err := &RateLimitError{Provider: "ollama", RetryAfter: 2 * time.Second}
	assert.Contains(t, err.Error(), "ollama")
	assert.Contains(t, err.Error(), "2s")
}
