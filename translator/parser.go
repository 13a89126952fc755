package translator

import (
	"encoding/json"
	"fmt"

	"github.com/spektr-org/tabula/query"
)

// ============================================================================
// RESPONSE PARSER — Extracts query.Spec from model output
// ============================================================================

// parseResponse extracts a Result from the model's JSON response.
func parseResponse(response string) (*Result, error) {
	response = stripFences(response)

	var result Result
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to parse translator response: %w (response: %.200s)", err, response)
	}

	// Sync confidence
	if result.Spec.Confidence == 0 && result.Interpretation.Confidence > 0 {
		result.Spec.Confidence = result.Interpretation.Confidence
	}

	// Missing aggregation defaults to sum; see query.NormalizeSpec.
	result.Spec = query.NormalizeSpec(result.Spec)
	return &result, nil
}

// parseFallbackInterpretation tries to extract just the Interpretation.
// Used when the full response parse fails.
func parseFallbackInterpretation(response string) *Interpretation {
	response = stripFences(response)

	// Try wrapped format: {"interpretation": {...}}
	var wrapper struct {
		Interpretation Interpretation `json:"interpretation"`
	}
	if err := json.Unmarshal([]byte(response), &wrapper); err == nil && wrapper.Interpretation.Summary != "" {
		return &wrapper.Interpretation
	}

	// Try direct format
	var direct Interpretation
	if err := json.Unmarshal([]byte(response), &direct); err == nil && direct.Summary != "" {
		return &direct
	}

	// Generic low-confidence fallback
	return &Interpretation{
		Summary: "I'll try to show results for your query",
		Details: []InterpretDetail{
			{Label: "Display", Value: "Data table"},
		},
		Confidence: 0.5,
	}
}
