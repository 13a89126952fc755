package translator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/spektr-org/tabula/dataframe"
	"github.com/spektr-org/tabula/logger"
	"github.com/spektr-org/tabula/query"
	"github.com/spektr-org/tabula/schema"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// GEMINI TRANSLATOR — Prompts a Model for NL → query.Spec
// ============================================================================
// Pipeline:
//   1. Build the schema-driven prompt (+ optional data summary)
//   2. Call the Model
//   3. Parse the JSON response, falling back to a low-confidence Spec
// ============================================================================

// Gemini implements Translator on top of a Model.
type Gemini struct {
	model   Model
	summary *DataSummary
	log     zerolog.Logger
}

// Option configures a Gemini translator.
type Option func(*Gemini)

// WithLogger routes translator logging to l.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Gemini) { g.log = logger.Component(l, "translator") }
}

// WithSummary attaches a data summary to every prompt.
func WithSummary(s *DataSummary) Option {
	return func(g *Gemini) { g.summary = s }
}

// New creates a translator over any Model.
func New(model Model, opts ...Option) *Gemini {
	g := &Gemini{model: model, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewGemini creates a translator backed by the Gemini API.
func NewGemini(ctx context.Context, cfg Config, opts ...Option) (*Gemini, error) {
	g := New(nil, opts...)
	model, err := NewGeminiModel(ctx, cfg, g.log)
	if err != nil {
		return nil, err
	}
	g.model = model
	return g, nil
}

// Translate converts a natural language question into a query.Spec.
func (g *Gemini) Translate(ctx context.Context, question string, sch schema.Config) (*Result, error) {
	prompt := BuildPrompt(sch, g.summary) + "\n\nUSER QUERY: " + question + "\n\nRespond with valid JSON only:"

	g.log.Info().
		Str(logger.FieldOperation, "translate").
		Str("question", truncate(question, 80)).
		Str("schema", sch.Name).
		Int("prompt_bytes", len(prompt)).
		Msg("translating question")

	response, err := g.model.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("translator: %w", err)
	}

	result, err := parseResponse(response)
	if err != nil {
		g.log.Warn().Err(err).Msg("parse failed, using fallback")
		return &Result{
			Spec: query.Spec{
				Aggregation: query.AggNone,
				Title:       "Query Results",
				Confidence:  0.5,
			},
			Interpretation: *parseFallbackInterpretation(response),
			Fallback:       true,
		}, nil
	}

	g.log.Info().
		Str("aggregation", result.Spec.Aggregation).
		Strs("group_by", result.Spec.GroupBy).
		Float64("confidence", result.Spec.Confidence).
		Msg("question translated")
	return result, nil
}

// ============================================================================
// DATA SUMMARY BUILDER
// ============================================================================

// DataSummary provides lightweight metadata about available data.
// This is what the model sees. Never raw rows.
type DataSummary struct {
	RecordCount int                 `json:"recordCount"`
	Dimensions  map[string][]string `json:"dimensions"` // dimension key → distinct values
}

// maxSummaryValues caps the distinct values listed per dimension.
const maxSummaryValues = 50

// BuildDataSummary enumerates df once and collects the distinct values of
// each schema dimension present in the frame.
func BuildDataSummary(df dataframe.DataFrame, sch schema.Config) (*DataSummary, error) {
	rows, err := df.ToValues()
	if err != nil {
		return nil, err
	}

	dims := make(map[string]map[string]bool)
	for _, d := range sch.Dimensions {
		if df.HasSeries(d.Key) {
			dims[d.Key] = make(map[string]bool)
		}
	}
	for _, row := range rows {
		for key, set := range dims {
			if v := value.ToString(row[key]); v != "" && len(set) < maxSummaryValues {
				set[v] = true
			}
		}
	}

	summary := &DataSummary{
		RecordCount: len(rows),
		Dimensions:  make(map[string][]string, len(dims)),
	}
	for key, set := range dims {
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		sort.Strings(vals)
		summary.Dimensions[key] = vals
	}
	return summary, nil
}

// ============================================================================
// HELPERS
// ============================================================================

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// stripFences removes a surrounding markdown code block.
func stripFences(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
