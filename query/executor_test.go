package query

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/spektr-org/tabula/dataframe"
	tberrors "github.com/spektr-org/tabula/errors"
)

// ============================================================================
// FIXTURES
// ============================================================================

func salesFrame() dataframe.DataFrame {
	return dataframe.MustNew(dataframe.Config{
		ColumnNames: []string{"Region", "Product", "Amount"},
		Rows: [][]any{
			{"North", "A", 10},
			{"South", "A", 20},
			{"North", "B", 5},
			{"South", "B", nil},
			{"North", "A", 15},
		},
	})
}

func mustExecute(t *testing.T, spec Spec, opts ...Option) *Result {
	t.Helper()
	res, err := Execute(spec, salesFrame(), opts...)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	return res
}

func assertFrame(t *testing.T, df dataframe.DataFrame, names []string, want [][]any) {
	t.Helper()
	if got := df.GetColumnNames(); !reflect.DeepEqual(got, names) {
		t.Errorf("columns: got %v, want %v", got, names)
	}
	rows, err := df.ToRows()
	if err != nil {
		t.Fatalf("ToRows failed: %v", err)
	}
	if len(rows) != len(want) {
		t.Fatalf("rows: got %v, want %v", rows, want)
	}
	for i := range want {
		if !reflect.DeepEqual(rows[i], want[i]) {
			t.Errorf("row %d: got %v, want %v", i, rows[i], want[i])
		}
	}
}

// ============================================================================
// EXECUTE TESTS
// ============================================================================

func TestExecuteSumByGroup(t *testing.T) {
	res := mustExecute(t, Spec{
		GroupBy:     []string{"Region"},
		Aggregation: "sum",
		Measure:     "Amount",
		SortBy:      SortValueDesc,
	})
	assertFrame(t, res.Frame, []string{"Region", "Value", "Count"}, [][]any{
		{"North", 30.0, 3},
		{"South", 20.0, 2},
	})
	if res.Count != 5 || res.Total != 50 {
		t.Errorf("unexpected count/total: %d / %v", res.Count, res.Total)
	}
}

func TestExecuteFiltersIgnoreCase(t *testing.T) {
	res := mustExecute(t, Spec{
		Filters:     Filters{Columns: map[string][]string{"Region": {"north"}}},
		GroupBy:     []string{"Product"},
		Aggregation: "sum",
		Measure:     "Amount",
	})
	assertFrame(t, res.Frame, []string{"Product", "Value", "Count"}, [][]any{
		{"A", 25.0, 2},
		{"B", 5.0, 1},
	})
}

func TestExecuteFilterValuesAreOrCombined(t *testing.T) {
	res := mustExecute(t, Spec{
		Filters: Filters{Columns: map[string][]string{
			"Region":  {"North", "South"},
			"Product": {"B"},
		}},
		Aggregation: "count",
	})
	assertFrame(t, res.Frame, []string{"Value", "Count"}, [][]any{{2, 2}})
}

func TestExecuteAggregations(t *testing.T) {
	cases := []struct {
		agg  string
		want [][]any
	}{
		{"count", [][]any{{"A", 3, 3}, {"B", 2, 2}}},
		{"avg", [][]any{{"A", 15.0, 3}, {"B", 5.0, 2}}},
		{"max", [][]any{{"A", 20.0, 3}, {"B", 5.0, 2}}},
		{"min", [][]any{{"A", 10.0, 3}, {"B", 5.0, 2}}},
		{"none", [][]any{{"A", nil, 3}, {"B", nil, 2}}},
	}
	for _, tc := range cases {
		t.Run(tc.agg, func(t *testing.T) {
			res := mustExecute(t, Spec{GroupBy: []string{"Product"}, Aggregation: tc.agg, Measure: "Amount"})
			assertFrame(t, res.Frame, []string{"Product", "Value", "Count"}, tc.want)
		})
	}
}

func TestExecuteMultiColumnGroups(t *testing.T) {
	res := mustExecute(t, Spec{
		GroupBy:     []string{"Region", "Product"},
		Aggregation: "sum",
		Measure:     "Amount",
		SortBy:      SortLabelAsc,
	})
	assertFrame(t, res.Frame, []string{"Region", "Product", "Value", "Count"}, [][]any{
		{"North", "A", 25.0, 2},
		{"North", "B", 5.0, 1},
		{"South", "A", 20.0, 1},
		{"South", "B", 0.0, 1},
	})
}

func TestExecuteSortAndLimit(t *testing.T) {
	res := mustExecute(t, Spec{
		GroupBy:     []string{"Region"},
		Aggregation: "sum",
		Measure:     "Amount",
		SortBy:      SortLabelDesc,
		Limit:       1,
	})
	assertFrame(t, res.Frame, []string{"Region", "Value", "Count"}, [][]any{{"South", 20.0, 2}})
}

func TestExecuteDefaultMeasure(t *testing.T) {
	res := mustExecute(t, Spec{Aggregation: "max"}, WithDefaultMeasure("Amount"))
	assertFrame(t, res.Frame, []string{"Value", "Count"}, [][]any{{20.0, 5}})
	if res.Measure != "Amount" {
		t.Errorf("measure: got %q", res.Measure)
	}
}

func TestExecuteRecordCountMeasure(t *testing.T) {
	res := mustExecute(t, Spec{GroupBy: []string{"Region"}, Measure: RecordCount})
	assertFrame(t, res.Frame, []string{"Region", "Value", "Count"}, [][]any{
		{"North", 3, 3},
		{"South", 2, 2},
	})
	if res.Summary != "Found 5 records." {
		t.Errorf("summary: got %q", res.Summary)
	}
}

func TestExecuteMissingColumns(t *testing.T) {
	specs := map[string]Spec{
		"group":   {GroupBy: []string{"Nope"}},
		"measure": {Measure: "Nope"},
		"filter":  {Filters: Filters{Columns: map[string][]string{"Nope": {"x"}}}},
	}
	for name, spec := range specs {
		t.Run(name, func(t *testing.T) {
			if _, err := Execute(spec, salesFrame()); !tberrors.IsMissingColumn(err) {
				t.Errorf("expected MISSING_COLUMN, got %v", err)
			}
		})
	}
}

func TestExecuteNoMatches(t *testing.T) {
	res := mustExecute(t, Spec{
		Filters: Filters{Columns: map[string][]string{"Region": {"West"}}},
		GroupBy: []string{"Region"},
		Measure: "Amount",
	})
	assertFrame(t, res.Frame, []string{"Region", "Value", "Count"}, [][]any{})
	if !strings.HasPrefix(res.Summary, "No records match") {
		t.Errorf("summary: got %q", res.Summary)
	}

	empty, err := Execute(Spec{}, dataframe.Empty())
	if err != nil {
		t.Fatalf("Execute on empty frame failed: %v", err)
	}
	if empty.Summary != "No data available to analyze." {
		t.Errorf("summary: got %q", empty.Summary)
	}
}

func TestExecuteLogs(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)
	mustExecute(t, Spec{Aggregation: "count"}, WithLogger(l))
	out := buf.String()
	if !strings.Contains(out, `"component":"query"`) || !strings.Contains(out, "query executed") {
		t.Errorf("unexpected log output: %s", out)
	}
}

// ============================================================================
// REPLY TESTS
// ============================================================================

func TestSummaryPlaceholders(t *testing.T) {
	res := mustExecute(t, Spec{
		GroupBy: []string{"Region"},
		Measure: "Amount",
		Reply:   "{top_group} leads with {top_value} of {total} across {count} rows",
	}, WithUnit("USD"))
	want := "North leads with USD 30.00 of USD 50.00 across 5 rows"
	if res.Summary != want {
		t.Errorf("summary: got %q, want %q", res.Summary, want)
	}
}

func TestSummaryStripsUnresolved(t *testing.T) {
	res := mustExecute(t, Spec{Aggregation: "count", Reply: "Counted {total} rows {unknown_thing}."})
	if res.Summary != "Counted 5 rows" {
		t.Errorf("summary: got %q", res.Summary)
	}
}

func TestDefaultSummary(t *testing.T) {
	res := mustExecute(t, Spec{Measure: "Amount"})
	if res.Summary != "Found 5 records totalling 50.00." {
		t.Errorf("summary: got %q", res.Summary)
	}
}

// ============================================================================
// NORMALIZATION TESTS
// ============================================================================

func TestNormalizeSpec(t *testing.T) {
	in := Spec{
		Aggregation: " Average ",
		SortBy:      "amount_desc",
		Limit:       -3,
		GroupBy:     []string{"Region", " ", "Region", "Product"},
		Filters:     Filters{Columns: map[string][]string{"Region": {}, "Product": {"A"}}},
	}
	got := NormalizeSpec(in)
	if got.Aggregation != AggAvg || got.SortBy != SortValueDesc || got.Limit != 0 {
		t.Errorf("unexpected normalization: %+v", got)
	}
	if !reflect.DeepEqual(got.GroupBy, []string{"Region", "Product"}) {
		t.Errorf("group by: got %v", got.GroupBy)
	}
	if got.Filters.HasFilter("Region") || !got.Filters.HasFilter("Product") {
		t.Errorf("filters: got %v", got.Filters.Columns)
	}
	if len(in.Filters.Columns) != 2 {
		t.Error("input spec must not be modified")
	}
}

func TestNormalizeSpecAggregations(t *testing.T) {
	cases := map[string]string{
		"":       AggSum,
		"list":   AggNone,
		"mean":   AggAvg,
		"growth": AggSum,
		"COUNT":  AggCount,
	}
	for in, want := range cases {
		if got := NormalizeSpec(Spec{Aggregation: in}).Aggregation; got != want {
			t.Errorf("NormalizeSpec(%q) = %q, want %q", in, got, want)
		}
	}
	if got := NormalizeSpec(Spec{Measure: RecordCount, Aggregation: "sum"}).Aggregation; got != AggCount {
		t.Errorf("record_count should force count, got %q", got)
	}
}

// ============================================================================
// FORMATTING TESTS
// ============================================================================

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		amount float64
		unit   string
		want   string
	}{
		{1234567.891, "INR", "INR 1,234,567.89"},
		{-42.5, "", "-42.50"},
		{999.999, "SGD", "SGD 1,000.00"},
		{0, "", "0.00"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.amount, tc.unit); got != tc.want {
			t.Errorf("FormatAmount(%v, %q) = %q, want %q", tc.amount, tc.unit, got, tc.want)
		}
	}
	if got := FormatInt(-1234567); got != "-1,234,567" {
		t.Errorf("FormatInt: got %q", got)
	}
}
