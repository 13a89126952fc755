package dataframe

import (
	"github.com/spektr-org/tabula/enumerator"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/index"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// ALIGNMENT — zip, concat and relational joins
// ============================================================================

// Zip combines the receiver with others row by row. The receiver's index
// is kept. Operands with different row counts stop the traversal with
// INVALID_ARGUMENT once the shorter one runs out.
func (o ops) Zip(others []DataFrame, fn func(rows []Row) Row) DataFrame {
	return zipFrames(append([]DataFrame{o.self}, others...), o.self.GetIndex(), fn)
}

func zipFrames(operands []DataFrame, idx index.Index, fn func(rows []Row) Row) DataFrame {
	open := func() ([]string, enumerator.Enumerator[Pair]) {
		es := make([]enumerator.Enumerator[Pair], len(operands))
		for i, df := range operands {
			es[i] = openOf(df).pairs()
		}
		return nil, enumerator.FromFunc(func() (Pair, bool, error) {
			rows := make([]Row, len(es))
			var key any
			advanced := 0
			for i, e := range es {
				if !e.MoveNext() {
					if err := e.Err(); err != nil {
						return Pair{}, false, err
					}
					continue
				}
				p := e.Current()
				rows[i] = p.Row
				if i == 0 {
					key = p.Key
				}
				advanced++
			}
			switch advanced {
			case 0:
				return Pair{}, false, nil
			case len(es):
				return Pair{Key: key, Row: fn(rows)}, true, nil
			}
			return Pair{}, false, tberrors.InvalidArgument("zip", "operands differ in row count")
		})
	}
	return recordFrame(idx, open, func(skip, take int) DataFrame {
		narrowed := make([]DataFrame, len(operands))
		for i, df := range operands {
			narrowed[i] = limitRows(df, skip, take)
		}
		return zipFrames(narrowed, nil, fn)
	})
}

// Concat appends the rows of others after the receiver's. Each row keeps
// its own key; the columns are the union of every operand's names.
func (o ops) Concat(others ...DataFrame) DataFrame {
	operands := append([]DataFrame{o.self}, others...)
	cols := func(resolve bool) ([]string, bool) {
		sets := make([][]string, len(operands))
		for i, df := range operands {
			ns, ok := columnsOf(df, resolve)
			if !ok {
				return nil, false
			}
			sets[i] = ns
		}
		return union(sets), true
	}
	return newLazy(cols, nil, func() stream {
		streams := make([]stream, len(operands))
		sets := make([][]string, len(operands))
		for i, df := range operands {
			streams[i] = openOf(df)
			sets[i] = streams[i].names
		}
		names := union(sets)
		parts := make([]enumerator.Enumerator[tuple], len(streams))
		for i, s := range streams {
			parts[i] = s.project(names).rows
		}
		return stream{names: names, rows: enumerator.Concat(parts...)}
	})
}

func union(sets [][]string) []string {
	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, ns := range sets {
		for _, n := range ns {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Concat joins frames end to end. Concat() is an empty frame.
func Concat(frames ...DataFrame) DataFrame {
	if len(frames) == 0 {
		return Empty()
	}
	return frames[0].Concat(frames[1:]...)
}

// ── joins ──

type joinKind int

const (
	joinInner joinKind = iota
	joinLeft
	joinRight
	joinFull
)

// Join emits fn(outer, inner) for every pair of rows whose keys match,
// in outer order then inner order. The result is indexed 0..n-1.
func (o ops) Join(inner DataFrame, outerKey, innerKey RowSelector, fn func(outer, inner Row) Row) DataFrame {
	return o.join(inner, outerKey, innerKey, fn, joinInner)
}

// JoinOuterLeft is Join plus fn(outer, nil) for unmatched outer rows.
func (o ops) JoinOuterLeft(inner DataFrame, outerKey, innerKey RowSelector, fn func(outer, inner Row) Row) DataFrame {
	return o.join(inner, outerKey, innerKey, fn, joinLeft)
}

// JoinOuterRight is Join plus fn(nil, inner) for unmatched inner rows,
// emitted after the matches.
func (o ops) JoinOuterRight(inner DataFrame, outerKey, innerKey RowSelector, fn func(outer, inner Row) Row) DataFrame {
	return o.join(inner, outerKey, innerKey, fn, joinRight)
}

// JoinOuter keeps unmatched rows from both sides.
func (o ops) JoinOuter(inner DataFrame, outerKey, innerKey RowSelector, fn func(outer, inner Row) Row) DataFrame {
	return o.join(inner, outerKey, innerKey, fn, joinFull)
}

func (o ops) join(inner DataFrame, outerKey, innerKey RowSelector, fn func(outer, inner Row) Row, kind joinKind) DataFrame {
	outer := o.self
	return recordFrame(nil, func() ([]string, enumerator.Enumerator[Pair]) {
		innerPairs, err := inner.ToPairs()
		if err != nil {
			return nil, enumerator.Failed[Pair](err)
		}
		lookup := make(map[any][]int)
		for i, p := range innerPairs {
			k := value.Key(innerKey(p.Row, p.Key))
			lookup[k] = append(lookup[k], i)
		}
		matched := make([]bool, len(innerPairs))

		out := make([]Row, 0)
		e := outer.open().pairs()
		for e.MoveNext() {
			p := e.Current()
			hits := lookup[value.Key(outerKey(p.Row, p.Key))]
			for _, i := range hits {
				matched[i] = true
				out = append(out, fn(p.Row, innerPairs[i].Row))
			}
			if len(hits) == 0 && (kind == joinLeft || kind == joinFull) {
				out = append(out, fn(p.Row, nil))
			}
		}
		if err := e.Err(); err != nil {
			return nil, enumerator.Failed[Pair](err)
		}
		if kind == joinRight || kind == joinFull {
			for i, p := range innerPairs {
				if !matched[i] {
					out = append(out, fn(nil, p.Row))
				}
			}
		}
		return nil, enumerator.WithIndex(enumerator.FromSlice(out), func(i int, row Row) Pair {
			return Pair{Key: i, Row: row}
		})
	}, nil)
}
