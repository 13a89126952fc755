package translator

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spektr-org/tabula/dataframe"
	"github.com/spektr-org/tabula/query"
	"github.com/spektr-org/tabula/schema"
)

// ============================================================================
// FIXTURES
// ============================================================================

// stubModel records prompts and replays a canned response.
type stubModel struct {
	response string
	err      error
	prompts  []string
}

func (s *stubModel) Generate(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func salesSchema() schema.Config {
	return schema.Config{
		Name: "Sales",
		Dimensions: []schema.DimensionMeta{
			{Key: "Region", DisplayName: "Region", DataType: schema.TypeString, SampleValues: []string{"North", "South"}},
			{Key: "Month", DisplayName: "Month", DataType: schema.TypeString, IsTemporal: true, TemporalFormat: "MMM-yyyy"},
			{Key: "Product", DisplayName: "Product", DataType: schema.TypeString, Parent: "Region"},
			{Key: "Currency", DisplayName: "Currency", IsCurrencyCode: true, SampleValues: []string{"INR", "SGD"}},
		},
		Measures: []schema.MeasureMeta{
			{Key: "Amount", DisplayName: "Amount", Unit: "currency"},
			{Key: schema.RecordCountKey, DisplayName: "Record Count", IsSynthetic: true, Aggregations: []string{"count"}},
		},
		Currency: &schema.CurrencyConfig{Enabled: true, CodeDimension: "Currency", BaseCurrency: "INR"},
	}
}

const specResponse = `{
  "interpretation": {"summary": "Total amount by region", "confidence": 0.8},
  "querySpec": {
    "filters": {"columns": {"Product": ["A"]}},
    "aggregation": "total",
    "measure": "Amount",
    "groupBy": ["Region"],
    "sortBy": "amount_desc",
    "limit": 3,
    "reply": "{top_group} leads"
  }
}`

// ============================================================================
// PARSER TESTS
// ============================================================================

func TestParseResponse(t *testing.T) {
	res, err := parseResponse(specResponse)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	want := query.Spec{
		Filters:     query.Filters{Columns: map[string][]string{"Product": {"A"}}},
		GroupBy:     []string{"Region"},
		Aggregation: query.AggSum,
		Measure:     "Amount",
		SortBy:      query.SortValueDesc,
		Limit:       3,
		Reply:       "{top_group} leads",
		Confidence:  0.8,
	}
	if !reflect.DeepEqual(res.Spec, want) {
		t.Errorf("spec:\n got %+v\nwant %+v", res.Spec, want)
	}
	if res.Interpretation.Summary != "Total amount by region" {
		t.Errorf("interpretation: got %+v", res.Interpretation)
	}
}

func TestParseResponseCodeFences(t *testing.T) {
	res, err := parseResponse("```json\n" + specResponse + "\n```")
	if err != nil {
		t.Fatalf("parse should handle markdown wrapping: %v", err)
	}
	if res.Spec.Measure != "Amount" {
		t.Errorf("measure: got %q", res.Spec.Measure)
	}
}

func TestParseResponseDefaults(t *testing.T) {
	res, err := parseResponse(`{"querySpec": {"groupBy": ["Region"]}}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if res.Spec.Aggregation != query.AggSum {
		t.Errorf("missing aggregation should default to sum, got %q", res.Spec.Aggregation)
	}
}

func TestParseResponseInvalid(t *testing.T) {
	if _, err := parseResponse("this is not json"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestParseFallbackInterpretation(t *testing.T) {
	cases := map[string]string{
		"wrapped": `{"interpretation": {"summary": "wrapped one"}, "querySpec": {"limit": "five"}}`,
		"direct":  `{"summary": "direct one"}`,
		"garbage": `not json at all`,
	}
	want := map[string]string{
		"wrapped": "wrapped one",
		"direct":  "direct one",
		"garbage": "I'll try to show results for your query",
	}
	for name, response := range cases {
		if got := parseFallbackInterpretation(response).Summary; got != want[name] {
			t.Errorf("%s: got %q, want %q", name, got, want[name])
		}
	}
}

// ============================================================================
// PROMPT TESTS
// ============================================================================

func TestBuildPrompt(t *testing.T) {
	summary := &DataSummary{RecordCount: 12, Dimensions: map[string][]string{"Region": {"North"}}}
	prompt := BuildPrompt(salesSchema(), summary)

	for _, want := range []string{
		`query translator for "Sales"`,
		`- "Region" values: ["North", "South"]`,
		`"Month"`,
		"[TEMPORAL, use for time-based questions]",
		"[CURRENCY CODE]",
		`"Product" is a child of "Region"`,
		"Base currency: INR",
		`"measure": "Amount"`,
		`"recordCount": 12`,
		"TEMPORAL DIMENSIONS: Month",
		`[auto-generated, counts rows]`,
		"EXAMPLE TRANSLATIONS:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptWithoutSummaryOrCurrency(t *testing.T) {
	sch := salesSchema()
	sch.Currency = nil
	prompt := BuildPrompt(sch, nil)
	if strings.Contains(prompt, "DATA SUMMARY (") || strings.Contains(prompt, "CURRENCY:") {
		t.Error("optional sections should be omitted")
	}
}

// ============================================================================
// TRANSLATE TESTS
// ============================================================================

func TestTranslate(t *testing.T) {
	model := &stubModel{response: specResponse}
	g := New(model)
	res, err := g.Translate(context.Background(), "top regions", salesSchema())
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if res.Fallback || res.Spec.Limit != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(model.prompts) != 1 || !strings.Contains(model.prompts[0], "USER QUERY: top regions") {
		t.Errorf("question not sent: %v", model.prompts)
	}
}

func TestTranslateFallback(t *testing.T) {
	g := New(&stubModel{response: "Sorry, I can't help"})
	res, err := g.Translate(context.Background(), "??", salesSchema())
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if !res.Fallback || res.Spec.Aggregation != query.AggNone || res.Spec.Confidence != 0.5 {
		t.Errorf("unexpected fallback: %+v", res)
	}
}

func TestTranslateModelError(t *testing.T) {
	boom := errors.New("quota exceeded")
	g := New(&stubModel{err: boom})
	if _, err := g.Translate(context.Background(), "q", salesSchema()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped model error, got %v", err)
	}
}

func TestTranslateWithSummary(t *testing.T) {
	df := dataframe.MustNew(dataframe.Config{
		ColumnNames: []string{"Region", "Amount"},
		Rows:        [][]any{{"South", 1}, {"North", 2}, {"South", 3}, {nil, 4}},
	})
	summary, err := BuildDataSummary(df, salesSchema())
	if err != nil {
		t.Fatalf("BuildDataSummary failed: %v", err)
	}
	if summary.RecordCount != 4 {
		t.Errorf("record count: got %d", summary.RecordCount)
	}
	if !reflect.DeepEqual(summary.Dimensions, map[string][]string{"Region": {"North", "South"}}) {
		t.Errorf("dimensions: got %v", summary.Dimensions)
	}

	model := &stubModel{response: specResponse}
	if _, err := New(model, WithSummary(summary)).Translate(context.Background(), "q", salesSchema()); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if !strings.Contains(model.prompts[0], `"recordCount": 4`) {
		t.Error("summary should be included in the prompt")
	}
}

func TestNewGeminiRequiresKey(t *testing.T) {
	if _, err := NewGemini(context.Background(), Config{}); err == nil {
		t.Error("expected error for empty API key")
	}
}
