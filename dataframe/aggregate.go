package dataframe

import (
	"github.com/spektr-org/tabula/enumerator"
	"github.com/spektr-org/tabula/series"
)

// ============================================================================
// AGGREGATION — Left folds over rows
// ============================================================================
// Aggregate is a plain fold. The seed is passed through untouched, so a
// function seed reaches the accumulator as-is and callers can build
// continuation-style accumulators on top.
// ============================================================================

// Aggregate folds the rows with the first row as the seed. An empty frame
// yields nil.
func (o ops) Aggregate(fn func(acc any, row Row) any) (any, error) {
	e := o.GetEnumerator()
	if !e.MoveNext() {
		return nil, e.Err()
	}
	var acc any = e.Current().Row
	for e.MoveNext() {
		acc = fn(acc, e.Current().Row)
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return acc, nil
}

// AggregateSeed folds the rows starting from seed.
func (o ops) AggregateSeed(seed any, fn func(acc any, row Row) any) (any, error) {
	acc := seed
	e := o.GetEnumerator()
	for e.MoveNext() {
		acc = fn(acc, e.Current().Row)
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return acc, nil
}

// AggregateColumns folds each column in fns independently. A column
// without a seed in seeds starts from its first non-absent value.
// Absent cells are skipped.
func (o ops) AggregateColumns(seeds Row, fns map[string]func(acc, v any) any) (Row, error) {
	out := make(Row, len(fns))
	seeded := make(map[string]bool, len(fns))
	for name := range fns {
		if s, ok := seeds[name]; ok && s != nil {
			out[name] = s
			seeded[name] = true
		}
	}
	e := o.GetEnumerator()
	for e.MoveNext() {
		row := e.Current().Row
		for name, fn := range fns {
			v, ok := row[name]
			if !ok {
				continue
			}
			if !seeded[name] {
				out[name], seeded[name] = v, true
				continue
			}
			out[name] = fn(out[name], v)
		}
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Deflate reduces each row to one value. The series shares the
// receiver's index handle.
func (o ops) Deflate(fn RowSelector) series.Series {
	src := o.self
	return series.NewLazy("", src.GetIndex(), func() enumerator.Enumerator[any] {
		s := src.open()
		return enumerator.Map(s.rows, func(t tuple) any {
			return fn(rowOf(s.names, t.cells), t.key)
		})
	})
}
