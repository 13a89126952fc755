package dataframe

import (
	"github.com/spektr-org/tabula/enumerator"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// ROW OPERATIONS — Positional, predicate and key-range selection
// ============================================================================

// deriveRows wraps the receiver's tuple stream. The column set is kept;
// the index is derived from the surviving rows.
func (o ops) deriveRows(wrap func(s stream) enumerator.Enumerator[tuple]) DataFrame {
	src := o.self
	return newLazy(src.columns, nil, func() stream {
		s := src.open()
		return stream{names: s.names, rows: wrap(s)}
	})
}

// limited narrows a frame whose names come from its rows at the source.
func (o ops) limited(skip, take int) (DataFrame, bool) {
	if lf, ok := o.self.(*LazyDataFrame); ok && lf.limit != nil {
		return lf.limit(skip, take), true
	}
	return nil, false
}

func (o ops) Skip(n int) DataFrame {
	n = max(n, 0)
	if df, ok := o.limited(n, -1); ok {
		return df
	}
	return o.deriveRows(func(s stream) enumerator.Enumerator[tuple] {
		return enumerator.Skip(s.rows, n)
	})
}

func (o ops) Take(n int) DataFrame {
	n = max(n, 0)
	if df, ok := o.limited(0, n); ok {
		return df
	}
	return o.deriveRows(func(s stream) enumerator.Enumerator[tuple] {
		return enumerator.Take(s.rows, n)
	})
}

// GetRowsSubset keeps count rows starting at position start.
func (o ops) GetRowsSubset(start, count int) DataFrame {
	return o.self.Skip(max(start, 0)).Take(max(count, 0))
}

func (o ops) Where(pred func(row Row, key any) bool) DataFrame {
	return o.deriveRows(func(s stream) enumerator.Enumerator[tuple] {
		return enumerator.Filter(s.rows, func(t tuple) bool { return pred(rowOf(s.names, t.cells), t.key) })
	})
}

// Slice returns the rows from the first key not less than startKey up to,
// but excluding, the first key not less than endKey. A nil less means
// value.Less; a nil bound leaves that side open.
func (o ops) Slice(startKey, endKey any, less func(a, b any) bool) DataFrame {
	if less == nil {
		less = value.Less
	}
	var startWhile, endWhile func(any) bool
	if startKey != nil {
		startWhile = func(k any) bool { return less(k, startKey) }
	}
	if endKey != nil {
		endWhile = func(k any) bool { return less(k, endKey) }
	}
	return o.SliceFunc(startWhile, endWhile)
}

// SliceFunc skips rows while startWhile holds for the key, then keeps
// rows while endWhile holds. Nil predicates are no-ops.
func (o ops) SliceFunc(startWhile, endWhile func(key any) bool) DataFrame {
	return o.deriveRows(func(s stream) enumerator.Enumerator[tuple] {
		e := s.rows
		if startWhile != nil {
			e = enumerator.SkipWhile(e, func(t tuple) bool { return startWhile(t.key) })
		}
		if endWhile != nil {
			e = enumerator.TakeWhile(e, func(t tuple) bool { return endWhile(t.key) })
		}
		return e
	})
}

// InsertPair prepends one row. Fields outside the column set are dropped.
func (o ops) InsertPair(key any, row Row) DataFrame {
	return o.addPair(key, row, true)
}

// AppendPair appends one row. Fields outside the column set are dropped.
func (o ops) AppendPair(key any, row Row) DataFrame {
	return o.addPair(key, row, false)
}

func (o ops) addPair(key any, row Row, front bool) DataFrame {
	src := o.self
	target := func(ns []string) []string {
		if len(ns) == 0 {
			ns = recordNames([]Row{row})
		}
		return ns
	}
	return newLazy(derivedColumns(src, target), nil, func() stream {
		s := src.open()
		if len(s.names) == 0 {
			s = s.project(target(nil))
		}
		extra := enumerator.FromSlice([]tuple{{key: key, cells: cellsOf(s.names, row)}})
		if front {
			return stream{names: s.names, rows: enumerator.Concat(extra, s.rows)}
		}
		return stream{names: s.names, rows: enumerator.Concat(s.rows, extra)}
	})
}
