package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MatchResponse is the structured payload the Layer 4 matcher expects back
// from an Adapter (spec.md section 4.6: "parses a structured response
// {matched: bool, confidence: float, explanation: string}").
type MatchResponse struct {
	Matched     bool    `json:"matched"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// ParseMatchResponse extracts a MatchResponse from raw adapter text. Models
// occasionally wrap JSON in prose or code fences; this mirrors the
// teacher's claude_cli_client.go parseResponse tolerance by locating the
// first '{' ... last '}' span before decoding.
func ParseMatchResponse(raw string) (MatchResponse, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return MatchResponse{}, fmt.Errorf("no JSON object found in response")
	}

	var resp MatchResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
		return MatchResponse{}, fmt.Errorf("failed to decode match response: %w", err)
	}

	if resp.Confidence < 0 {
		resp.Confidence = 0
	}
	if resp.Confidence > 1 {
		resp.Confidence = 1
	}
	return resp, nil
}
