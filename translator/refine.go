package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spektr-org/tabula/logger"
	"github.com/spektr-org/tabula/schema"
)

// ============================================================================
// SMART REFINE — Model-assisted schema enrichment (one-time)
// ============================================================================
// After schema.Discover produces a draft from heuristics, Refine optionally
// sends column metadata (a few hundred bytes) to the model for semantic
// enrichment. Callers cache the result; it is only re-fetched when the data
// shape changes.
//
// What the model sees:
//   - Column names, detected types, sample values, cardinality estimates
//   - Row count and detected hierarchies, currency, temporal flags
//
// What the model returns:
//   - Dataset name + description
//   - Display names, descriptions and units per column
//   - Sort hints for ordinal dimensions (P1 > P2 > P3 > P4)
//   - Default aggregations and hierarchy suggestions
// ============================================================================

// Refine enriches a discovered schema with one model call. The draft is not
// mutated. If the call or the parse fails, the draft is returned with the
// error.
func (g *Gemini) Refine(ctx context.Context, draft *schema.Config) (*schema.Config, error) {
	if draft == nil {
		return nil, fmt.Errorf("refine: draft schema is nil")
	}

	payload := buildRefinePayload(draft)
	prompt := buildRefinePrompt(payload)

	g.log.Info().
		Str(logger.FieldOperation, "refine").
		Int("columns", len(payload.Columns)).
		Int("prompt_bytes", len(prompt)).
		Msg("refining schema")

	response, err := g.model.Generate(ctx, prompt)
	if err != nil {
		g.log.Warn().Err(err).Msg("refine call failed, returning draft unchanged")
		return draft, fmt.Errorf("refine: %w", err)
	}

	enrichment, err := parseRefineResponse(response)
	if err != nil {
		g.log.Warn().Err(err).Msg("refine parse failed, returning draft unchanged")
		return draft, fmt.Errorf("refine: %w", err)
	}

	for _, r := range enrichment.RecoverColumns {
		g.log.Info().Str(logger.FieldColumn, r.Column).Str("role", r.SuggestedRole).Str("reason", r.Reason).
			Msg("model suggests recovering column; rerun discovery with RecoverColumns")
	}

	result := applyEnrichments(draft, enrichment)
	g.log.Info().
		Int("dimensions", len(result.Dimensions)).
		Int("measures", len(result.Measures)).
		Msg("schema refined")
	return result, nil
}

// ============================================================================
// PAYLOAD BUILDER — What the model sees
// ============================================================================

type refinePayload struct {
	Columns  []refineColumn `json:"columns"`
	RowCount int            `json:"rowCount"`
	Detected refineDetected `json:"detected"`
}

type refineColumn struct {
	Name    string   `json:"name"`
	Key     string   `json:"key"`
	Role    string   `json:"role"` // "dimension", "measure"
	Type    string   `json:"type"` // "string", "number", "date", "boolean", "temporal"
	Samples []string `json:"samples,omitempty"`
	Unique  int      `json:"unique,omitempty"`
	// Existing detection flags, so the model can confirm/correct
	IsTemporal     bool   `json:"isTemporal,omitempty"`
	IsCurrencyCode bool   `json:"isCurrencyCode,omitempty"`
	Parent         string `json:"parent,omitempty"`
}

type refineDetected struct {
	HasCurrency    bool     `json:"hasCurrency"`
	HasTemporal    bool     `json:"hasTemporal"`
	Hierarchies    []string `json:"hierarchies,omitempty"`    // "child → parent"
	SkippedColumns []string `json:"skippedColumns,omitempty"` // names of skipped columns
}

func buildRefinePayload(draft *schema.Config) refinePayload {
	p := refinePayload{RowCount: draft.RowCount}

	for _, d := range draft.Dimensions {
		col := refineColumn{
			Name:           d.DisplayName,
			Key:            d.Key,
			Role:           "dimension",
			Type:           d.DataType,
			Samples:        limitSamples(d.SampleValues, 5),
			Unique:         estimateUnique(d.CardinalityHint),
			IsTemporal:     d.IsTemporal,
			IsCurrencyCode: d.IsCurrencyCode,
			Parent:         d.Parent,
		}
		if col.Type == "" {
			col.Type = schema.TypeString
		}
		if d.IsTemporal {
			col.Type = "temporal"
		}
		p.Columns = append(p.Columns, col)
	}

	// Measures (skip synthetic)
	for _, m := range draft.Measures {
		if m.IsSynthetic {
			continue
		}
		p.Columns = append(p.Columns, refineColumn{
			Name: m.DisplayName,
			Key:  m.Key,
			Role: "measure",
			Type: schema.TypeNumber,
		})
	}

	p.Detected.HasCurrency = draft.Currency != nil && draft.Currency.Enabled
	for _, d := range draft.Dimensions {
		if d.IsTemporal {
			p.Detected.HasTemporal = true
		}
		if d.Parent != "" {
			p.Detected.Hierarchies = append(p.Detected.Hierarchies, fmt.Sprintf("%s → %s", d.Key, d.Parent))
		}
	}
	for _, s := range draft.SkippedColumns {
		p.Detected.SkippedColumns = append(p.Detected.SkippedColumns, s.Column)
	}
	return p
}

// ============================================================================
// PROMPT BUILDER
// ============================================================================

func buildRefinePrompt(payload refinePayload) string {
	payloadJSON, _ := json.MarshalIndent(payload, "", "  ")

	return fmt.Sprintf(`You are a data analyst inspecting a dataset's structure. Based on the column metadata below, provide semantic enrichments.

COLUMN METADATA:
%s

INSTRUCTIONS:
1. Suggest a concise, descriptive name for this dataset (2-5 words)
2. Write a one-line description of what this dataset contains
3. For each column, provide:
   - displayName: Human-friendly label (e.g., "story_points" → "Story Points")
   - description: What this column represents in the domain (e.g., "Issue severity level")
   - unit: For measures only, one of: "currency", "hours", "points", "percent", "units", or "" if unknown
   - sortHint: For ordinal dimensions, the natural ordering (e.g., "P1 > P2 > P3 > P4")
   - defaultAggregation: For measures, one of "sum", "avg", "count", "max", "min"
4. Suggest any hierarchies the heuristics may have missed (parent → child relationships)
5. Flag any columns listed as skipped that should probably be included

Respond with ONLY valid JSON (no markdown, no backticks):
{
  "datasetName": "...",
  "datasetDescription": "...",
  "enrichments": [
    {
      "key": "column_key",
      "displayName": "...",
      "description": "...",
      "unit": "",
      "sortHint": "",
      "defaultAggregation": ""
    }
  ],
  "suggestedHierarchies": [
    {"parent": "parent_key", "child": "child_key", "reason": "..."}
  ],
  "recoverColumns": [
    {"column": "column_name", "reason": "...", "suggestedRole": "dimension"}
  ]
}`, payloadJSON)
}

// ============================================================================
// RESPONSE TYPES
// ============================================================================

type refineEnrichment struct {
	DatasetName          string                `json:"datasetName"`
	DatasetDescription   string                `json:"datasetDescription"`
	Enrichments          []columnEnrichment    `json:"enrichments"`
	SuggestedHierarchies []hierarchySuggestion `json:"suggestedHierarchies"`
	RecoverColumns       []recoverSuggestion   `json:"recoverColumns"`
}

type columnEnrichment struct {
	Key                string `json:"key"`
	DisplayName        string `json:"displayName"`
	Description        string `json:"description"`
	Unit               string `json:"unit"`
	SortHint           string `json:"sortHint"`
	DefaultAggregation string `json:"defaultAggregation"`
}

type hierarchySuggestion struct {
	Parent string `json:"parent"`
	Child  string `json:"child"`
	Reason string `json:"reason"`
}

type recoverSuggestion struct {
	Column        string `json:"column"`
	Reason        string `json:"reason"`
	SuggestedRole string `json:"suggestedRole"`
}

func parseRefineResponse(response string) (*refineEnrichment, error) {
	response = stripFences(response)

	var result refineEnrichment
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("failed to parse refine response: %w (response: %.300s)", err, response)
	}
	return &result, nil
}

// ============================================================================
// APPLY ENRICHMENTS — Merge model suggestions into the schema
// ============================================================================

// applyEnrichments creates a new Config with enrichments merged in.
// Rules:
//   - Suggestions override generic display names and empty descriptions
//   - Column roles and keys never change
//   - Hierarchy suggestions apply only where no parent was detected
//   - Hierarchies must name known dimensions
func applyEnrichments(draft *schema.Config, enrichment *refineEnrichment) *schema.Config {
	result := draft.Clone()

	if enrichment.DatasetName != "" {
		result.Name = enrichment.DatasetName
	}
	if enrichment.DatasetDescription != "" {
		result.Description = enrichment.DatasetDescription
	}

	enrichMap := make(map[string]columnEnrichment, len(enrichment.Enrichments))
	for _, e := range enrichment.Enrichments {
		enrichMap[e.Key] = e
	}

	for i := range result.Dimensions {
		d := &result.Dimensions[i]
		if e, ok := enrichMap[d.Key]; ok {
			if e.DisplayName != "" {
				d.DisplayName = e.DisplayName
			}
			if e.Description != "" {
				d.Description = e.Description
			}
			if e.SortHint != "" {
				d.SortHint = e.SortHint
			}
		}
	}

	for i := range result.Measures {
		m := &result.Measures[i]
		if e, ok := enrichMap[m.Key]; ok {
			if e.DisplayName != "" {
				m.DisplayName = e.DisplayName
			}
			if e.Description != "" {
				m.Description = e.Description
			}
			if e.Unit != "" {
				m.Unit = e.Unit
				m.IsCurrency = e.Unit == "currency"
			}
			if e.DefaultAggregation != "" && isValidAggregation(e.DefaultAggregation) {
				m.DefaultAggregation = e.DefaultAggregation
			}
		}
	}

	for _, h := range enrichment.SuggestedHierarchies {
		if _, ok := result.Dimension(h.Parent); !ok || h.Parent == h.Child {
			continue
		}
		for i := range result.Dimensions {
			if result.Dimensions[i].Key == h.Child && result.Dimensions[i].Parent == "" {
				result.Dimensions[i].Parent = h.Parent
			}
		}
	}

	result.RefinedAt = time.Now().Format(time.RFC3339)
	result.RefinedBy = "gemini"
	return result
}

// ============================================================================
// HELPERS
// ============================================================================

func limitSamples(vals []string, max int) []string {
	if len(vals) <= max {
		return vals
	}
	return vals[:max]
}

func estimateUnique(hint string) int {
	switch hint {
	case "low":
		return 5
	case "medium":
		return 30
	case "high":
		return 200
	default:
		return 10
	}
}

func isValidAggregation(agg string) bool {
	switch agg {
	case "sum", "avg", "count", "max", "min":
		return true
	}
	return false
}
