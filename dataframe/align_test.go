package dataframe

import (
	"testing"

	tberrors "github.com/spektr-org/tabula/errors"
)

// ============================================================================
// ZIP & CONCAT TESTS
// ============================================================================

func TestZip(t *testing.T) {
	a := MustNew(Config{ColumnNames: []string{"a"}, Index: []any{"x", "y"}, Rows: [][]any{{1}, {2}}})
	b := MustNew(Config{ColumnNames: []string{"b"}, Rows: [][]any{{10}, {20}}})
	zipped := a.Zip([]DataFrame{b}, func(rows []Row) Row {
		return Row{"sum": rows[0]["a"].(int) + rows[1]["b"].(int)}
	})
	assertNames(t, zipped, "sum")
	assertRows(t, mustRows(t, zipped), [][]any{{11}, {22}})
	if zipped.GetIndex() != a.GetIndex() {
		t.Error("zip should keep the receiver's index")
	}
}

func TestZipUnequalCounts(t *testing.T) {
	a := MustNew(Config{ColumnNames: []string{"a"}, Rows: [][]any{{1}, {2}}})
	b := MustNew(Config{ColumnNames: []string{"b"}, Rows: [][]any{{10}}})
	zipped := a.Zip([]DataFrame{b}, func(rows []Row) Row { return rows[0] })
	if _, err := zipped.ToRows(); !tberrors.IsInvalidArgument(err) {
		t.Errorf("expected INVALID_ARGUMENT, got %v", err)
	}
}

func TestConcat(t *testing.T) {
	df1 := MustNew(Config{ColumnNames: []string{"c"}, Index: []any{1, 2}, Rows: [][]any{{10}, {20}}})
	df2 := MustNew(Config{ColumnNames: []string{"c"}, Index: []any{3, 4}, Rows: [][]any{{30}, {40}}})

	for name, df := range map[string]DataFrame{
		"method":   df1.Concat(df2),
		"function": Concat(df1, df2),
		"empties":  Concat(Empty(), df1, Empty(), df2),
	} {
		t.Run(name, func(t *testing.T) {
			assertAnys(t, mustIndex(t, df), []any{1, 2, 3, 4})
			assertRows(t, mustRows(t, df), [][]any{{10}, {20}, {30}, {40}})
		})
	}
}

func TestConcatUnionsColumns(t *testing.T) {
	a := MustNew(Config{ColumnNames: []string{"x", "y"}, Rows: [][]any{{1, 2}}})
	b := MustNew(Config{ColumnNames: []string{"z", "x"}, Rows: [][]any{{3, 4}}})
	df := a.Concat(b)
	assertNames(t, df, "x", "y", "z")
	assertRows(t, mustRows(t, df), [][]any{{1, 2, nil}, {4, nil, 3}})
}

func TestConcatNothing(t *testing.T) {
	df := Concat()
	n, err := df.Count()
	if err != nil || n != 0 {
		t.Errorf("expected an empty frame, got %d (%v)", n, err)
	}
}

// ============================================================================
// DEDUPLICATION & WINDOW TESTS
// ============================================================================

func TestDistinct(t *testing.T) {
	df := MustNew(Config{
		ColumnNames: []string{"k", "v"},
		Rows:        [][]any{{"a", 1}, {"b", 2}, {"a", 1}, {"a", 3}},
	})
	assertAnys(t, mustIndex(t, df.Distinct(nil)), []any{0, 1, 3})
	assertAnys(t, mustIndex(t, df.Distinct(func(r Row, _ any) any { return r["k"] })), []any{0, 1})
}

func TestSequentialDistinct(t *testing.T) {
	df := MustNew(Config{
		ColumnNames: []string{"v"},
		Rows:        [][]any{{1}, {1}, {2}, {2}, {1}},
	})
	out := df.SequentialDistinct(func(r Row, _ any) any { return r["v"] })
	assertAnys(t, mustIndex(t, out), []any{0, 2, 4})
	assertRows(t, mustRows(t, out), [][]any{{1}, {2}, {1}})
}

func TestVariableWindow(t *testing.T) {
	df := MustNew(Config{
		ColumnNames: []string{"v"},
		Rows:        [][]any{{1}, {1}, {2}, {3}, {3}, {3}},
	})
	windows := df.VariableWindow(func(prev, next Row) bool { return prev["v"] == next["v"] })
	pairs, err := windows.ToPairs()
	if err != nil {
		t.Fatalf("VariableWindow failed: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(pairs))
	}
	wantIdx := [][]any{{0, 1}, {2}, {3, 4, 5}}
	for i, p := range pairs {
		if p.Key != i {
			t.Errorf("window %d keyed %v", i, p.Key)
		}
		assertAnys(t, mustIndex(t, p.Value.(DataFrame)), wantIdx[i])
	}
}

func TestVariableWindowEmpty(t *testing.T) {
	n, err := Empty().VariableWindow(func(Row, Row) bool { return true }).Count()
	if err != nil || n != 0 {
		t.Errorf("expected no windows, got %d (%v)", n, err)
	}
}

func TestGroupBy(t *testing.T) {
	groups := exampleFrame2().GroupBy(func(r Row, _ any) any { return r["Value2"] })
	pairs, err := groups.ToPairs()
	if err != nil {
		t.Fatalf("GroupBy failed: %v", err)
	}
	keys := make([]any, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key
	}
	assertAnys(t, keys, []any{"c", "b", "d"})
	assertAnys(t, mustIndex(t, pairs[0].Value.(DataFrame)), []any{0, 2})
	assertNames(t, pairs[0].Value.(DataFrame), "Date", "Value1", "Value2", "Value3")
}

// ============================================================================
// JOIN TESTS
// ============================================================================

func joinFixtures() (DataFrame, DataFrame) {
	customers := MustNew(Config{
		ColumnNames: []string{"CustomerId", "Name"},
		Rows:        [][]any{{1, "Alice"}, {2, "Bob"}, {3, "Carol"}},
	})
	orders := MustNew(Config{
		ColumnNames: []string{"CustomerId", "Amount"},
		Rows:        [][]any{{1, 10}, {3, 30}, {1, 15}, {9, 90}},
	})
	return customers, orders
}

func byCustomer(r Row, _ any) any { return r["CustomerId"] }

func mergeSides(outer, inner Row) Row {
	out := Row{}
	for k, v := range inner {
		out[k] = v
	}
	for k, v := range outer {
		out[k] = v
	}
	return out
}

func TestJoin(t *testing.T) {
	customers, orders := joinFixtures()
	joined := customers.Join(orders, byCustomer, byCustomer, mergeSides)
	assertNames(t, joined, "Amount", "CustomerId", "Name")
	assertAnys(t, mustIndex(t, joined), []any{0, 1, 2})
	assertRows(t, mustRows(t, joined), [][]any{
		{10, 1, "Alice"},
		{15, 1, "Alice"},
		{30, 3, "Carol"},
	})
}

func TestJoinOuterVariants(t *testing.T) {
	customers, orders := joinFixtures()
	cases := []struct {
		name string
		df   DataFrame
		want [][]any
	}{
		{
			name: "left",
			df:   customers.JoinOuterLeft(orders, byCustomer, byCustomer, mergeSides),
			want: [][]any{{10, 1, "Alice"}, {15, 1, "Alice"}, {nil, 2, "Bob"}, {30, 3, "Carol"}},
		},
		{
			name: "right",
			df:   customers.JoinOuterRight(orders, byCustomer, byCustomer, mergeSides),
			want: [][]any{{10, 1, "Alice"}, {15, 1, "Alice"}, {30, 3, "Carol"}, {90, 9, nil}},
		},
		{
			name: "full",
			df:   customers.JoinOuter(orders, byCustomer, byCustomer, mergeSides),
			want: [][]any{{10, 1, "Alice"}, {15, 1, "Alice"}, {nil, 2, "Bob"}, {30, 3, "Carol"}, {90, 9, nil}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertRows(t, mustRows(t, tc.df.Subset([]string{"Amount", "CustomerId", "Name"})), tc.want)
		})
	}
}
