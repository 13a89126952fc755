package dataframe

import (
	"maps"
	"slices"
	"sort"
	"unicode/utf8"

	"github.com/spektr-org/tabula/enumerator"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/index"
	"github.com/spektr-org/tabula/series"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// COLUMN OPERATIONS — Every op returns a new frame over the receiver
// ============================================================================
// Unknown column names are ignored throughout; only SetIndex and
// RenameColumns can fail.
// ============================================================================

// ── setting one column ──

// cellSource starts one traversal and returns the per-row cell producer.
type cellSource func(srcNames []string) (func(t tuple) (any, error), error)

func withColumn(names []string, name string) []string {
	if positionOf(names, name) < 0 {
		names = append(names, name)
	}
	return names
}

// setColumn overwrites or appends column name. The index handle is kept.
func (o ops) setColumn(name string, start cellSource) DataFrame {
	src := o.self
	target := func(ns []string) []string { return withColumn(ns, name) }
	return newLazy(derivedColumns(src, target), src.GetIndex(), func() stream {
		s := src.open()
		names := target(slices.Clone(s.names))
		pos := positionOf(names, name)
		cell, err := start(s.names)
		if err != nil {
			return failed(names, err)
		}
		return stream{names: names, rows: enumerator.MapErr(s.rows, func(t tuple) (tuple, error) {
			v, err := cell(t)
			if err != nil {
				return tuple{}, err
			}
			cells := make([]any, len(names))
			copy(cells, t.cells)
			cells[pos] = v
			return tuple{key: t.key, cells: cells}, nil
		})}
	})
}

// SetSeries sets column name from s. When s shares the receiver's index
// handle the values are taken positionally; otherwise they are realigned
// by key. The n-th receiver row with a key takes the n-th value s holds
// for it, and rows beyond s's occurrences reuse its last one. Receiver
// keys with no match get the absent marker and keys only s has are
// dropped.
func (o ops) SetSeries(name string, s series.Series) DataFrame {
	if s.GetIndex() == o.self.GetIndex() {
		return o.setColumn(name, func([]string) (func(tuple) (any, error), error) {
			e := s.GetEnumerator()
			return func(tuple) (any, error) {
				if e.MoveNext() {
					return e.Current(), nil
				}
				return nil, e.Err()
			}, nil
		})
	}
	return o.setColumn(name, func([]string) (func(tuple) (any, error), error) {
		lookup := make(map[any][]any)
		e := s.GetPairsEnumerator()
		for e.MoveNext() {
			p := e.Current()
			k := value.Key(p.Key)
			lookup[k] = append(lookup[k], p.Value)
		}
		if err := e.Err(); err != nil {
			return nil, err
		}
		seen := make(map[any]int)
		return func(t tuple) (any, error) {
			k := value.Key(t.key)
			vs := lookup[k]
			if len(vs) == 0 {
				return nil, nil
			}
			n := min(seen[k], len(vs)-1)
			seen[k]++
			return vs[n], nil
		}, nil
	})
}

// SetValues sets column name positionally from values. Rows past the end
// of values get the absent marker.
func (o ops) SetValues(name string, values []any) DataFrame {
	return o.setColumn(name, func([]string) (func(tuple) (any, error), error) {
		i := -1
		return func(tuple) (any, error) {
			i++
			return cellAt(values, i), nil
		}, nil
	})
}

// SetGenerated sets column name to fn of each row.
func (o ops) SetGenerated(name string, fn RowSelector) DataFrame {
	return o.setColumn(name, func(srcNames []string) (func(tuple) (any, error), error) {
		return func(t tuple) (any, error) { return fn(rowOf(srcNames, t.cells), t.key), nil }, nil
	})
}

// ── projection ──

// project reshapes the column list. Target names missing from the
// source become all-absent columns.
func (o ops) project(target func(srcNames []string) []string) DataFrame {
	src := o.self
	return newLazy(derivedColumns(src, target), src.GetIndex(), func() stream {
		s := src.open()
		return s.project(target(slices.Clone(s.names)))
	})
}

func (o ops) DropSeries(names ...string) DataFrame {
	drop := nameSet(names)
	return o.project(func(src []string) []string {
		return slices.DeleteFunc(src, func(n string) bool { return drop[n] })
	})
}

func (o ops) KeepSeries(names ...string) DataFrame {
	keep := nameSet(names)
	return o.project(func(src []string) []string {
		return slices.DeleteFunc(src, func(n string) bool { return !keep[n] })
	})
}

// Subset projects onto names in the requested order. Unknown names are
// skipped.
func (o ops) Subset(names []string) DataFrame {
	return o.project(func(src []string) []string {
		have := nameSet(src)
		out := make([]string, 0, len(names))
		for _, n := range names {
			if have[n] && !slices.Contains(out, n) {
				out = append(out, n)
			}
		}
		return out
	})
}

// RemapColumns projects onto exactly names. Unknown names become new
// all-absent columns.
func (o ops) RemapColumns(names []string) DataFrame {
	target := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(target, n) {
			target = append(target, n)
		}
	}
	return o.project(func([]string) []string { return slices.Clone(target) })
}

func (o ops) BringToFront(names ...string) DataFrame {
	return o.project(func(src []string) []string {
		moved, rest := partition(src, nameSet(names))
		return append(moved, rest...)
	})
}

func (o ops) BringToBack(names ...string) DataFrame {
	return o.project(func(src []string) []string {
		moved, rest := partition(src, nameSet(names))
		return append(rest, moved...)
	})
}

func partition(src []string, set map[string]bool) (in, out []string) {
	in, out = make([]string, 0), make([]string, 0)
	for _, n := range src {
		if set[n] {
			in = append(in, n)
		} else {
			out = append(out, n)
		}
	}
	return in, out
}

// ── renaming ──

// RenameSeries renames the mapped columns. Other names pass through.
func (o ops) RenameSeries(mapping map[string]string) DataFrame {
	src := o.self
	rename := func(ns []string) []string {
		for i, n := range ns {
			if to, ok := mapping[n]; ok {
				ns[i] = to
			}
		}
		return ns
	}
	return newLazy(derivedColumns(src, rename), src.GetIndex(), func() stream {
		s := src.open()
		return stream{names: rename(slices.Clone(s.names)), rows: s.rows}
	})
}

// RenameColumns replaces every column name positionally.
func (o ops) RenameColumns(names []string) (DataFrame, error) {
	have := o.self.GetColumnNames()
	if len(names) != len(have) {
		return nil, tberrors.InvalidArgument("names", "must name every column exactly once")
	}
	if len(nameSet(names)) != len(names) {
		return nil, tberrors.InvalidArgument("names", "duplicate column name")
	}
	src := o.self
	fixed := slices.Clone(names)
	return newLazy(fixedColumns(fixed), src.GetIndex(), func() stream {
		return stream{names: fixed, rows: src.open().rows}
	}), nil
}

// ── per-cell transforms ──

// mapCells rewrites the non-absent cells of the selected columns.
func (o ops) mapCells(selected func(column string) bool, fn func(column string, v any) (any, error)) DataFrame {
	src := o.self
	return newLazy(src.columns, src.GetIndex(), func() stream {
		s := src.open()
		targets := make([]int, 0, len(s.names))
		for p, n := range s.names {
			if selected(n) {
				targets = append(targets, p)
			}
		}
		return stream{names: s.names, rows: enumerator.MapErr(s.rows, func(t tuple) (tuple, error) {
			cells := slices.Clone(t.cells)
			for _, p := range targets {
				v := cellAt(cells, p)
				if value.IsAbsent(v) {
					continue
				}
				out, err := fn(s.names[p], v)
				if err != nil {
					return tuple{}, err
				}
				cells[p] = out
			}
			return tuple{key: t.key, cells: cells}, nil
		})}
	})
}

// TransformSeries applies each function to its column's cells. When the
// column set is known and no column matches, the receiver itself is
// returned.
func (o ops) TransformSeries(fns map[string]func(v any) any) DataFrame {
	selected := func(n string) bool {
		_, ok := fns[n]
		return ok
	}
	if names, ok := o.self.columns(false); ok && !slices.ContainsFunc(names, selected) {
		return o.self
	}
	return o.mapCells(selected, func(column string, v any) (any, error) {
		return fns[column](v), nil
	})
}

// TruncateStrings shortens string cells longer than maxLen runes.
func (o ops) TruncateStrings(maxLen int) DataFrame {
	maxLen = max(maxLen, 0)
	every := func(string) bool { return true }
	return o.mapCells(every, func(_ string, v any) (any, error) {
		s, ok := v.(string)
		if !ok || utf8.RuneCountInString(s) <= maxLen {
			return v, nil
		}
		return string([]rune(s)[:maxLen]), nil
	})
}

// ── generation ──

// GenerateSeries adds one column per entry, computed from the source
// row. New columns are appended in sorted name order; existing names are
// overwritten in place.
func (o ops) GenerateSeries(fns map[string]RowSelector) DataFrame {
	gen := make([]string, 0, len(fns))
	for n := range fns {
		gen = append(gen, n)
	}
	sort.Strings(gen)
	src := o.self
	target := func(ns []string) []string {
		for _, n := range gen {
			ns = withColumn(ns, n)
		}
		return ns
	}
	return newLazy(derivedColumns(src, target), src.GetIndex(), func() stream {
		s := src.open()
		names := target(slices.Clone(s.names))
		pos := make([]int, len(gen))
		for i, n := range gen {
			pos[i] = positionOf(names, n)
		}
		return stream{names: names, rows: enumerator.Map(s.rows, func(t tuple) tuple {
			row := rowOf(s.names, t.cells)
			cells := make([]any, len(names))
			copy(cells, t.cells)
			for i, n := range gen {
				cells[pos[i]] = fns[n](row, t.key)
			}
			return tuple{key: t.key, cells: cells}
		})}
	})
}

// GenerateRecords merges the record fn returns into each row. The column
// set grows by the union of returned keys.
func (o ops) GenerateRecords(fn func(row Row, key any) Row) DataFrame {
	return mergeRecords(o.self, o.self.GetIndex(), func(p Pair) Row { return fn(p.Row, p.Key) })
}

// InflateColumn spreads a column of Row values into one column per key.
func (o ops) InflateColumn(name string) DataFrame {
	if !o.HasSeries(name) {
		return o.self
	}
	return mergeRecords(o.self, o.self.GetIndex(), func(p Pair) Row {
		rec, _ := p.Row[name].(Row)
		return rec
	})
}

// mergeRecords overlays extra onto every row of src. The keys extra
// introduces are learned while the rows are produced.
func mergeRecords(src DataFrame, idx index.Index, extra func(Pair) Row) DataFrame {
	return recordFrame(idx, func() ([]string, enumerator.Enumerator[Pair]) {
		s := openOf(src)
		return s.names, enumerator.Map(s.pairs(), func(p Pair) Pair {
			row := extra(p)
			if len(row) == 0 {
				return p
			}
			merged := make(Row, len(p.Row)+len(row))
			maps.Copy(merged, p.Row)
			maps.Copy(merged, row)
			return Pair{Key: p.Key, Row: merged}
		})
	}, func(skip, take int) DataFrame {
		return mergeRecords(limitRows(src, skip, take), nil, extra)
	})
}

// ── index ──

// SetIndex promotes column name to the index and drops it from the data.
func (o ops) SetIndex(name string) (DataFrame, error) {
	if !o.HasSeries(name) {
		return nil, tberrors.MissingColumn("setIndex", name)
	}
	src := o.self
	target := func(ns []string) []string {
		return slices.DeleteFunc(ns, func(n string) bool { return n == name })
	}
	return newLazy(derivedColumns(src, target), nil, func() stream {
		s := src.open()
		pos := positionOf(s.names, name)
		return stream{names: target(slices.Clone(s.names)), rows: enumerator.Map(s.rows, func(t tuple) tuple {
			cells := slices.Clone(t.cells)
			if pos >= 0 && pos < len(cells) {
				cells = slices.Delete(cells, pos, pos+1)
			}
			return tuple{key: cellAt(t.cells, pos), cells: cells}
		})}
	}), nil
}

// ResetIndex replaces the index with 0..n-1.
func (o ops) ResetIndex() DataFrame {
	return o.rekey(nil)
}

// WithIndex pairs the rows positionally with idx, stopping at the shorter.
func (o ops) WithIndex(idx index.Index) DataFrame {
	return o.rekey(idx)
}

func (o ops) rekey(idx index.Index) DataFrame {
	src := o.self
	return newLazy(src.columns, idx, func() stream {
		s := src.open()
		return stream{names: s.names, rows: withKeys(idx, s.rows, func(k any, t tuple) tuple {
			return tuple{key: k, cells: t.cells}
		})}
	})
}
