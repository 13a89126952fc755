package dataframe

import (
	"github.com/spektr-org/tabula/enumerator"
	"github.com/spektr-org/tabula/index"
	"github.com/spektr-org/tabula/series"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// WINDOWS & DEDUPLICATION
// ============================================================================
// Window and group results are series whose values are eager frames.
// ============================================================================

// Distinct keeps the first row for each distinct fn result, with that
// row's original key. A nil fn compares whole rows.
func (o ops) Distinct(fn RowSelector) DataFrame {
	sel := selectorOrRow(fn)
	return o.deriveRows(func(s stream) enumerator.Enumerator[tuple] {
		seen := make(map[any]bool)
		return enumerator.Filter(s.rows, func(t tuple) bool {
			k := value.Key(sel(rowOf(s.names, t.cells), t.key))
			if seen[k] {
				return false
			}
			seen[k] = true
			return true
		})
	})
}

// SequentialDistinct collapses runs of consecutive rows with equal fn
// results down to the first row of each run.
func (o ops) SequentialDistinct(fn RowSelector) DataFrame {
	sel := selectorOrRow(fn)
	return o.deriveRows(func(s stream) enumerator.Enumerator[tuple] {
		var prev any
		started := false
		return enumerator.Filter(s.rows, func(t tuple) bool {
			k := sel(rowOf(s.names, t.cells), t.key)
			keep := !started || !value.Equal(k, prev)
			prev, started = k, true
			return keep
		})
	})
}

func selectorOrRow(fn RowSelector) RowSelector {
	if fn != nil {
		return fn
	}
	return func(row Row, _ any) any { return row }
}

// VariableWindow splits the rows into maximal runs where pred holds for
// every adjacent pair. The result is indexed 0..n-1 by window.
func (o ops) VariableWindow(pred func(prev, next Row) bool) series.Series {
	src := o.self
	return series.FromPairs("", func() enumerator.Enumerator[series.Pair] {
		s := src.open()
		names, e := s.names, s.rows
		var pending *tuple
		n := 0
		return enumerator.FromFunc(func() (series.Pair, bool, error) {
			window := make([]tuple, 0)
			if pending != nil {
				window = append(window, *pending)
				pending = nil
			}
			for e.MoveNext() {
				t := e.Current()
				if len(window) > 0 && !pred(rowOf(names, window[len(window)-1].cells), rowOf(names, t.cells)) {
					pending = &t
					break
				}
				window = append(window, t)
			}
			if err := e.Err(); err != nil {
				return series.Pair{}, false, err
			}
			if len(window) == 0 {
				return series.Pair{}, false, nil
			}
			p := series.Pair{Key: n, Value: eagerFrom(names, window)}
			n++
			return p, true, nil
		})
	})
}

// GroupBy partitions the rows by fn result. Groups appear in first-seen
// order, indexed by their group value.
func (o ops) GroupBy(fn RowSelector) series.Series {
	src := o.self
	return series.FromPairs("", func() enumerator.Enumerator[series.Pair] {
		s := src.open()
		names, e := s.names, s.rows
		groups := make(map[any][]tuple)
		order := make([]any, 0)
		for e.MoveNext() {
			t := e.Current()
			g := fn(rowOf(names, t.cells), t.key)
			k := value.Key(g)
			if _, ok := groups[k]; !ok {
				order = append(order, g)
			}
			groups[k] = append(groups[k], t)
		}
		if err := e.Err(); err != nil {
			return enumerator.Failed[series.Pair](err)
		}
		return enumerator.Map(enumerator.FromSlice(order), func(g any) series.Pair {
			return series.Pair{Key: g, Value: eagerFrom(names, groups[value.Key(g)])}
		})
	})
}

// eagerFrom materializes tuples into column-major storage.
func eagerFrom(names []string, rows []tuple) *EagerDataFrame {
	keys := make([]any, len(rows))
	cols := makeColumns(len(names), len(rows))
	for r, t := range rows {
		keys[r] = t.key
		for c := range cols {
			cols[c][r] = cellAt(t.cells, c)
		}
	}
	return newEager(names, index.New(keys), cols)
}
