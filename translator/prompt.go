package translator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spektr-org/tabula/schema"
)

// ============================================================================
// PROMPT BUILDER — Schema-Driven AI Prompt Generation
// ============================================================================
// The prompt is generated from schema.Config:
//   - Dimensions → listed with sample values
//   - Measures → listed with aggregation types
//   - Hierarchies → parent/child relationships explained
//   - Temporal → identified for date-based questions
//   - Currency → code column and base currency
//
// Total data sent to the model: a few KB of metadata. Never raw rows.
// ============================================================================

// BuildPrompt generates the complete system prompt for the translator.
func BuildPrompt(sch schema.Config, dataSummary *DataSummary) string {
	var b strings.Builder

	// ── Header ────────────────────────────────────────────────────────────
	fmt.Fprintf(&b, `You are a query translator for "%s", a tabular data analytics tool.

CURRENT DATE: %s

YOUR ROLE:
Translate the user's natural language question into a structured query spec that a computation engine will execute.
You are a TRANSLATOR ONLY. Do NOT compute any values. The engine does all computation locally.

`, sch.Name, time.Now().Format("2006-01-02"))

	// ── Data Summary ──────────────────────────────────────────────────────
	if dataSummary != nil {
		summaryJSON, _ := json.MarshalIndent(dataSummary, "", "  ")
		fmt.Fprintf(&b, "DATA SUMMARY (what data is available, NOT actual values):\n%s\n\n", summaryJSON)
	}

	// ── Schema Description ────────────────────────────────────────────────
	b.WriteString("DATA MODEL:\n")
	b.WriteString(buildDimensionDescription(sch))
	b.WriteString(buildMeasureDescription(sch))
	b.WriteString("\n")

	// ── Hierarchy Relationships ───────────────────────────────────────────
	if hierarchies := buildHierarchyDescription(sch); hierarchies != "" {
		b.WriteString("DIMENSION HIERARCHIES:\n")
		b.WriteString(hierarchies)
		b.WriteString("\n")
	}

	// ── Currency Rules ────────────────────────────────────────────────────
	if sch.Currency != nil && sch.Currency.Enabled {
		fmt.Fprintf(&b, `CURRENCY:
Base currency: %s
Currency codes are stored in the "%s" column.
When asking about a single currency, filter by that code.

`, sch.Currency.BaseCurrency, sch.Currency.CodeDimension)
	}

	// ── Response Format ───────────────────────────────────────────────────
	b.WriteString(buildResponseFormat(sch))

	// ── Spec Rules ────────────────────────────────────────────────────────
	b.WriteString(buildSpecRules(sch))

	// ── Common Translations ───────────────────────────────────────────────
	b.WriteString(buildExampleTranslations(sch))

	// ── Footer ────────────────────────────────────────────────────────────
	b.WriteString("\nRemember: You are a TRANSLATOR. Output structured instructions for the engine. Do NOT compute values.\n")

	return b.String()
}

// ============================================================================
// SECTION BUILDERS
// ============================================================================

func buildDimensionDescription(sch schema.Config) string {
	var b strings.Builder

	b.WriteString("DIMENSIONS (columns for grouping and filtering):\n")
	for _, d := range sch.Dimensions {
		fmt.Fprintf(&b, "- %q", d.Key)
		if d.DisplayName != "" && d.DisplayName != d.Key {
			fmt.Fprintf(&b, " (%s)", d.DisplayName)
		}
		if d.Description != "" {
			fmt.Fprintf(&b, ": %s", d.Description)
		}
		if len(d.SampleValues) > 0 {
			fmt.Fprintf(&b, " values: [%s]", strings.Join(quotedValues(d.SampleValues), ", "))
		}
		if d.SortHint != "" {
			fmt.Fprintf(&b, " order: %s", d.SortHint)
		}
		if d.IsTemporal {
			b.WriteString(" [TEMPORAL, use for time-based questions]")
		}
		if d.IsCurrencyCode {
			b.WriteString(" [CURRENCY CODE]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func buildMeasureDescription(sch schema.Config) string {
	var b strings.Builder

	b.WriteString("\nMEASURES (numeric columns for aggregation):\n")
	for _, m := range sch.Measures {
		fmt.Fprintf(&b, "- %q", m.Key)
		if m.DisplayName != "" && m.DisplayName != m.Key {
			fmt.Fprintf(&b, " (%s)", m.DisplayName)
		}
		if m.Description != "" {
			fmt.Fprintf(&b, ": %s", m.Description)
		}
		if m.Unit != "" {
			fmt.Fprintf(&b, " [unit: %s]", m.Unit)
		}
		aggs := m.Aggregations
		if len(aggs) == 0 {
			aggs = []string{"sum", "avg", "min", "max", "count"}
		}
		fmt.Fprintf(&b, " aggregations: [%s]", strings.Join(aggs, ", "))
		if m.DefaultAggregation != "" {
			fmt.Fprintf(&b, ", default: %s", m.DefaultAggregation)
		}
		if m.IsSynthetic {
			b.WriteString(" [auto-generated, counts rows]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func buildHierarchyDescription(sch schema.Config) string {
	var b strings.Builder
	for _, d := range sch.Dimensions {
		if d.Parent != "" {
			fmt.Fprintf(&b, "- %q is a child of %q (filter the parent, then group by the child for a breakdown)\n", d.Key, d.Parent)
		}
	}
	return b.String()
}

func buildResponseFormat(sch schema.Config) string {
	var filters strings.Builder
	filters.WriteString("{\n")
	for _, d := range sch.Dimensions {
		fmt.Fprintf(&filters, "      %q: [],\n", d.Key)
	}
	filters.WriteString("    }")

	return fmt.Sprintf(`RESPONSE FORMAT (ALWAYS valid JSON, no markdown):
{
  "interpretation": {
    "summary": "A one-line description of what will be computed",
    "details": [
      {"label": "Data", "value": "Description of data being analyzed"},
      {"label": "Grouping", "value": "How results are grouped"}
    ],
    "suggestions": [
      {"label": "refinement label", "modifier": "appended to question"}
    ],
    "confidence": 0.9
  },
  "querySpec": {
    "filters": {
      "columns": %s
    },
    "aggregation": "sum|count|avg|max|min|none",
    "measure": "%s",
    "groupBy": [],
    "sortBy": "value_desc|value_asc|label_asc|label_desc",
    "limit": 0,
    "title": "Result title",
    "reply": "Template with {total}, {count}, {groups}, {top_group}, {top_value}, {avg}, {max}, {min}, {filters} placeholders",
    "confidence": 0.9
  }
}

`, filters.String(), sch.GetDefaultMeasure())
}

func buildSpecRules(sch schema.Config) string {
	dimKeys := make([]string, 0, len(sch.Dimensions))
	var temporalDims []string
	for _, d := range sch.Dimensions {
		dimKeys = append(dimKeys, fmt.Sprintf("%q", d.Key))
		if d.IsTemporal || d.DataType == schema.TypeDate {
			temporalDims = append(temporalDims, d.Key)
		}
	}

	temporalNote := ""
	if len(temporalDims) > 0 {
		temporalNote = fmt.Sprintf(`
TEMPORAL DIMENSIONS: %s
- Use these for time series and trends.
- Sort by "label_asc" for chronological, "label_desc" for reverse.
`, strings.Join(temporalDims, ", "))
	}

	return fmt.Sprintf(`QUERY SPEC RULES:

1. "filters" selects which rows to include:
   - Keys are dimension columns: %s
   - Empty array = no filter
   - Values must come from the DATA SUMMARY or sample values above
   - Filters are AND across columns, OR within a column, case-insensitive

2. "aggregation" combines rows:
   - "sum" → total (default for "how much" questions)
   - "count" → number of rows ("how many")
   - "avg" → average value
   - "max" → largest value ("biggest", "highest")
   - "min" → smallest value ("smallest", "lowest")
   - "none" → group only, no aggregate ("show all", "list")

3. "measure" is the numeric column to aggregate (from MEASURES above).
   Use "%s" to count rows.

4. "groupBy" lists dimension columns to group by: %s
   - [] → a single overall result
   - Combine for multi-dimensional breakdowns: ["dim1", "dim2"]
%s
5. "sortBy":
   - "value_desc" → highest first (default for rankings)
   - "value_asc" → lowest first
   - "label_asc" → by group label, ascending (chronological for dates)
   - "label_desc" → by group label, descending

6. "limit" caps the number of groups (0 = all).

7. "reply" is a natural language template with placeholders:
   {total}, {count}, {groups}, {top_group}, {top_value}, {avg}, {max}, {min}, {filters}
`, strings.Join(dimKeys, ", "), schema.RecordCountKey, strings.Join(dimKeys, ", "), temporalNote)
}

func buildExampleTranslations(sch schema.Config) string {
	if len(sch.Dimensions) == 0 || len(sch.Measures) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("EXAMPLE TRANSLATIONS:\n")

	measure := sch.GetDefaultMeasure()

	// Pick dimensions for examples
	var firstDim, secondDim, temporalDim string
	for _, d := range sch.Dimensions {
		switch {
		case d.IsTemporal && temporalDim == "":
			temporalDim = d.Key
		case firstDim == "":
			firstDim = d.Key
		case secondDim == "":
			secondDim = d.Key
		}
	}

	if firstDim != "" {
		fmt.Fprintf(&b, "- \"%s by %s\" → groupBy:[%q], aggregation:\"sum\", measure:%q\n",
			measure, firstDim, firstDim, measure)
		fmt.Fprintf(&b, "- \"top 5 %s\" → groupBy:[%q], sortBy:\"value_desc\", limit:5\n", firstDim, firstDim)
	}
	if temporalDim != "" {
		fmt.Fprintf(&b, "- \"trend over time\" → groupBy:[%q], sortBy:\"label_asc\"\n", temporalDim)
	}
	fmt.Fprintf(&b, "- \"total %s\" → aggregation:\"sum\", measure:%q\n", measure, measure)
	fmt.Fprintf(&b, "- \"how many rows\" → aggregation:\"count\", measure:%q\n", schema.RecordCountKey)
	if firstDim != "" && secondDim != "" {
		fmt.Fprintf(&b, "- \"compare %s across %s\" → groupBy:[%q, %q]\n",
			firstDim, secondDim, secondDim, firstDim)
	}

	b.WriteString("\n")
	return b.String()
}

// ============================================================================
// HELPERS
// ============================================================================

func quotedValues(vals []string) []string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return quoted
}
