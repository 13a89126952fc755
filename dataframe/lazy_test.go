package dataframe

import (
	"errors"
	"testing"

	"github.com/spektr-org/tabula/enumerator"
)

// ============================================================================
// TRAVERSAL COUNTS
// ============================================================================
// Lazy frames re-read their source once per materialization. Column names
// inferred from the rows are learned in that same pass.
// ============================================================================

func countingRecords(calls *int, recs ...Row) enumerator.Iterable[Row] {
	return func() enumerator.Enumerator[Row] {
		*calls++
		return enumerator.FromSlice(recs)
	}
}

func countingRows(calls *int, names []string, rows ...[]any) DataFrame {
	return MustNew(Config{
		ColumnNames: names,
		RowsFunc: func() enumerator.Enumerator[[]any] {
			*calls++
			return enumerator.FromSlice(rows)
		},
	})
}

func keepAll(Row, any) bool { return true }

func TestInferredPipelineReadsSourceOncePerMaterialization(t *testing.T) {
	calls := 0
	df := MustNew(Config{RecordsFunc: countingRecords(&calls,
		Row{"a": "alpha", "b": 1},
		Row{"a": "beta", "c": true},
	)})
	out := df.DropSeries("b").Where(keepAll).TruncateStrings(3)

	assertRows(t, mustRows(t, out), [][]any{{"alp", nil}, {"bet", true}})
	if calls != 1 {
		t.Fatalf("first materialization read the source %d times, want 1", calls)
	}
	assertNames(t, out, "a", "c")
	if calls != 1 {
		t.Errorf("column names should not re-read the source, got %d reads", calls)
	}
	vals, err := out.ToValues()
	if err != nil {
		t.Fatalf("ToValues failed: %v", err)
	}
	if len(vals) != 2 || vals[0]["a"] != "alp" || vals[1]["c"] != true {
		t.Errorf("got %v", vals)
	}
	if calls != 2 {
		t.Errorf("second materialization should read the source once more, got %d reads", calls)
	}
}

func TestInferredNamesAskedFirst(t *testing.T) {
	calls := 0
	df := MustNew(Config{RecordsFunc: countingRecords(&calls, Row{"x": 1}, Row{"y": 2})})
	assertNames(t, df.KeepSeries("y", "x"), "x", "y")
	assertRows(t, mustRows(t, df), [][]any{{1, nil}, {nil, 2}})
	if calls != 2 {
		t.Errorf("got %d reads, want one for the names and one for the rows", calls)
	}
}

func TestZipCombinesOncePerRow(t *testing.T) {
	calls, combined := 0, 0
	a := countingRows(&calls, []string{"x"}, []any{1}, []any{2}, []any{3})
	b := MustNew(Config{ColumnNames: []string{"y"}, Rows: [][]any{{10}, {20}, {30}}})
	z := a.Zip([]DataFrame{b}, func(rows []Row) Row {
		combined++
		return Row{"sum": rows[0]["x"].(int) + rows[1]["y"].(int)}
	})

	assertRows(t, mustRows(t, z.Where(keepAll)), [][]any{{11}, {22}, {33}})
	if calls != 1 || combined != 3 {
		t.Fatalf("got %d source reads and %d combiner calls, want 1 and 3", calls, combined)
	}
	assertNames(t, z, "sum")
	if combined != 3 {
		t.Errorf("column names should not re-run the combiner, got %d calls", combined)
	}
	assertRows(t, mustRows(t, z), [][]any{{11}, {22}, {33}})
	if calls != 2 || combined != 6 {
		t.Errorf("got %d source reads and %d combiner calls, want 2 and 6", calls, combined)
	}
}

func TestPivotReadsSourceOnce(t *testing.T) {
	calls := 0
	df := countingRows(&calls, []string{"D", "T", "C"},
		[]any{"d1", "x", 1},
		[]any{"d1", "y", 2},
		[]any{"d2", "x", 3},
	)
	keyed, err := df.SetIndex("D")
	if err != nil {
		t.Fatal(err)
	}
	pivoted, err := keyed.Pivot("T", "C")
	if err != nil {
		t.Fatal(err)
	}
	assertRows(t, mustRows(t, pivoted), [][]any{{1, 2}, {3, nil}})
	assertNames(t, pivoted, "x", "y")
	if calls != 1 {
		t.Errorf("got %d reads, want 1", calls)
	}
}

// ============================================================================
// UNBOUNDED SOURCES
// ============================================================================

func TestTakeBoundsInfiniteRecords(t *testing.T) {
	df := MustNew(Config{RecordsFunc: func() enumerator.Enumerator[Row] {
		return enumerator.Map(enumerator.Counter(), func(i int) Row { return Row{"n": i} })
	}})
	top := df.Skip(2).Take(3)
	assertRows(t, mustRows(t, top), [][]any{{2}, {3}, {4}})
	assertAnys(t, mustIndex(t, top), []any{2, 3, 4})
	assertNames(t, top, "n")
}

func TestTakeBoundsInfiniteRows(t *testing.T) {
	df := MustNew(Config{RowsFunc: func() enumerator.Enumerator[[]any] {
		return enumerator.Map(enumerator.Counter(), func(i int) []any { return []any{i, i * i} })
	}})
	top := df.Take(3).Skip(1)
	assertNames(t, top, "0", "1")
	assertRows(t, mustRows(t, top), [][]any{{1, 1}, {2, 4}})
}

func TestTakeBoundsGeneratedRecords(t *testing.T) {
	df := MustNew(Config{RecordsFunc: func() enumerator.Enumerator[Row] {
		return enumerator.Map(enumerator.Counter(), func(i int) Row { return Row{"n": i} })
	}})
	out := df.GenerateRecords(func(row Row, _ any) Row {
		return Row{"even": row["n"].(int)%2 == 0}
	}).Take(2)
	assertNames(t, out, "n", "even")
	assertRows(t, mustRows(t, out), [][]any{{0, true}, {1, false}})
}

func TestWindowNarrowing(t *testing.T) {
	cases := []struct {
		skip, take, s, t int
		wantSkip         int
		wantTake         int
	}{
		{0, -1, 2, -1, 2, -1},
		{0, -1, 0, 3, 0, 3},
		{2, 3, 1, -1, 3, 2},
		{2, 3, 0, 5, 2, 3},
		{0, 3, 5, -1, 5, 0},
	}
	for _, tc := range cases {
		skip, take := narrow(tc.skip, tc.take, tc.s, tc.t)
		if skip != tc.wantSkip || take != tc.wantTake {
			t.Errorf("narrow(%d,%d,%d,%d) = %d,%d want %d,%d",
				tc.skip, tc.take, tc.s, tc.t, skip, take, tc.wantSkip, tc.wantTake)
		}
	}
}

// ============================================================================
// FAILING SOURCES
// ============================================================================

func TestInferredSourceErrorSurfaces(t *testing.T) {
	boom := errors.New("boom")
	rows := MustNew(Config{RowsFunc: func() enumerator.Enumerator[[]any] {
		return enumerator.Concat(enumerator.FromSlice([][]any{{1}}), enumerator.Failed[[]any](boom))
	}})
	if _, err := rows.ToRows(); !errors.Is(err, boom) {
		t.Errorf("rows: expected the source error, got %v", err)
	}
	records := MustNew(Config{RecordsFunc: func() enumerator.Enumerator[Row] {
		return enumerator.Failed[Row](boom)
	}})
	if _, err := records.DropSeries("x").ToValues(); !errors.Is(err, boom) {
		t.Errorf("records: expected the source error, got %v", err)
	}
	if _, err := records.Count(); !errors.Is(err, boom) {
		t.Errorf("the error must surface again on the next traversal, got %v", err)
	}
}

func TestInferredRowsTooWideAfterNamesCached(t *testing.T) {
	width := 1
	df := MustNew(Config{RowsFunc: func() enumerator.Enumerator[[]any] {
		row := make([]any, width)
		return enumerator.FromSlice([][]any{row})
	}})
	assertNames(t, df, "0")
	width = 2
	if _, err := df.ToRows(); err == nil {
		t.Error("a row wider than the learned columns should fail")
	}
}
