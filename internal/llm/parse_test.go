package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMatchResponsePlainJSON(t *testing.T) {
	resp, err := ParseMatchResponse(`{"matched": true, "confidence": 0.8, "explanation": "close enough"}`)
	require.NoError(t, err)
	assert.True(t, resp.Matched)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Equal(t, "close enough", resp.Explanation)
}

func TestParseMatchResponseToleratesSurroundingProse(t *testing.T) {
	raw := "Sure, here is my answer:\n```json\n{\"matched\": false, \"confidence\": 0.3, \"explanation\": \"different processes\"}\n```\nLet me know if you need more."
	resp, err := ParseMatchResponse(raw)
	require.NoError(t, err)
	assert.False(t, resp.Matched)
	assert.Equal(t, 0.3, resp.Confidence)
}

func TestParseMatchResponseClampsConfidence(t *testing.T) {
	resp, err := ParseMatchResponse(`{"matched": true, "confidence": 1.5, "explanation": ""}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, resp.Confidence)

	resp, err = ParseMatchResponse(`{"matched": true, "confidence": -0.5, "explanation": ""}`)
	require.NoError(t, err)
	assert.Equal(t, 0.0, resp.Confidence)
}

func TestParseMatchResponseNoJSONIsError(t *testing.T) {
	_, err := ParseMatchResponse("I cannot determine this.")
	assert.Error(t, err)
}

func TestParseMatchResponseMalformedJSONIsError(t *testing.T) {
	_, err := ParseMatchResponse(`{"matched": tru`)
	assert.Error(t, err)
}
