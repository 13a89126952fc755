package dataframe

import (
	"github.com/spektr-org/tabula/enumerator"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// RESHAPE — pivot and per-column frequency diagnostics
// ============================================================================

// ── detectTypes / detectValues ──

type tally struct {
	order  []any
	counts map[any]int
	first  map[any]any
	total  int
}

func newTally() *tally {
	return &tally{counts: make(map[any]int), first: make(map[any]any)}
}

func (t *tally) add(label any) {
	k := value.Key(label)
	if _, ok := t.counts[k]; !ok {
		t.order = append(t.order, k)
		t.first[k] = label
	}
	t.counts[k]++
	t.total++
}

// frequencies builds the three-column diagnostic frame. label maps a
// non-absent cell to what is being counted.
func (o ops) frequencies(labelColumn string, label func(v any) any) DataFrame {
	src := o.self
	names := []string{labelColumn, "Frequency", "Column"}
	return newLazy(fixedColumns(names), nil, func() stream {
		s := src.open()
		cols := s.names
		tallies := make([]*tally, len(cols))
		for i := range tallies {
			tallies[i] = newTally()
		}
		e := s.rows
		for e.MoveNext() {
			t := e.Current()
			for c := range cols {
				if v := cellAt(t.cells, c); !value.IsAbsent(v) {
					tallies[c].add(label(v))
				}
			}
		}
		if err := e.Err(); err != nil {
			return failed(names, err)
		}
		rows := make([][]any, 0)
		for c, name := range cols {
			tl := tallies[c]
			for _, k := range tl.order {
				freq := float64(tl.counts[k]) / float64(tl.total) * 100
				rows = append(rows, []any{tl.first[k], freq, name})
			}
		}
		return stream{names: names, rows: enumerator.WithIndex(enumerator.FromSlice(rows), func(i int, cells []any) tuple {
			return tuple{key: i, cells: cells}
		})}
	})
}

// DetectTypes reports, per column, how often each value type occurs as a
// percentage of that column's non-absent cells.
func (o ops) DetectTypes() DataFrame {
	return o.frequencies("Type", func(v any) any { return value.TypeName(v) })
}

// DetectValues reports, per column, how often each distinct value occurs.
func (o ops) DetectValues() DataFrame {
	return o.frequencies("Value", func(v any) any { return v })
}

// ── pivot ──

type pivotTable struct {
	columns []string
	keys    []any
	cells   map[any]map[string]any
}

// buildPivot scans the rows once. Group values become column names via
// value.ToString; the first value seen for a (key, group) pair wins.
func buildPivot(s stream, group, val string) (*pivotTable, error) {
	gp, vp := positionOf(s.names, group), positionOf(s.names, val)
	pt := &pivotTable{cells: make(map[any]map[string]any)}
	seenCol := make(map[string]bool)
	e := s.rows
	for e.MoveNext() {
		t := e.Current()
		g := cellAt(t.cells, gp)
		if value.IsAbsent(g) {
			continue
		}
		col := value.ToString(g)
		if !seenCol[col] {
			seenCol[col] = true
			pt.columns = append(pt.columns, col)
		}
		k := value.Key(t.key)
		row, ok := pt.cells[k]
		if !ok {
			row = make(map[string]any)
			pt.cells[k] = row
			pt.keys = append(pt.keys, t.key)
		}
		if _, set := row[col]; !set {
			row[col] = cellAt(t.cells, vp)
		}
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	if pt.columns == nil {
		pt.columns = []string{}
	}
	return pt, nil
}

// Pivot spreads valueColumn across one column per distinct groupColumn
// value, producing one row per distinct index key.
func (o ops) Pivot(groupColumn, valueColumn string) (DataFrame, error) {
	for _, c := range []string{groupColumn, valueColumn} {
		if !o.HasSeries(c) {
			return nil, tberrors.MissingColumn("pivot", c)
		}
	}
	src := o.self
	cache := new(columnCache)
	start := func() stream {
		pt, err := buildPivot(src.open(), groupColumn, valueColumn)
		if err != nil {
			return failed(nil, err)
		}
		names := cache.put(pt.columns)
		return stream{names: names, rows: enumerator.Map(enumerator.FromSlice(pt.keys), func(k any) tuple {
			row := pt.cells[value.Key(k)]
			cells := make([]any, len(names))
			for i, col := range names {
				cells[i] = row[col]
			}
			return tuple{key: k, cells: cells}
		})}
	}
	return newLazy(cache.columns(start), nil, start), nil
}
