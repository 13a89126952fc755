package dataframe

import (
	"github.com/spektr-org/tabula/enumerator"
)

// ============================================================================
// STRUCT ADAPTER — Typed slices as lazy frames
// ============================================================================
//
// Usage:
//
//	adapter := dataframe.NewAdapter[Trade]().
//	    Column("Ticker", func(t Trade) any { return t.Ticker }).
//	    Column("Close", func(t Trade) any { return t.Close }).
//	    Key(func(t Trade) any { return t.Date })
//
//	df := adapter.Bind(trades)
//
// Declare once, bind many times. Bind holds a reference to the slice and
// reads it through the accessors on every traversal.
// ============================================================================

// Adapter maps values of type T to rows.
type Adapter[T any] struct {
	order []string
	cols  map[string]func(T) any
	key   func(T) any
}

// NewAdapter creates an adapter for type T.
func NewAdapter[T any]() *Adapter[T] {
	return &Adapter[T]{cols: make(map[string]func(T) any)}
}

// Column registers a column accessor. Re-registering a name replaces
// the accessor and keeps its position.
func (a *Adapter[T]) Column(name string, fn func(T) any) *Adapter[T] {
	if _, exists := a.cols[name]; !exists {
		a.order = append(a.order, name)
	}
	a.cols[name] = fn
	return a
}

// Key registers the index key accessor. Without one rows are keyed 0..n-1.
func (a *Adapter[T]) Key(fn func(T) any) *Adapter[T] {
	a.key = fn
	return a
}

// Bind creates a lazy frame over data.
func (a *Adapter[T]) Bind(data []T) DataFrame {
	names := make([]string, len(a.order))
	copy(names, a.order)
	accessors := make([]func(T) any, len(names))
	for i, n := range names {
		accessors[i] = a.cols[n]
	}
	keyFn := a.key
	return newLazy(fixedColumns(names), nil, func() stream {
		return stream{names: names, rows: enumerator.WithIndex(enumerator.FromSlice(data), func(i int, item T) tuple {
			cells := make([]any, len(accessors))
			for c, fn := range accessors {
				cells[c] = fn(item)
			}
			var key any = i
			if keyFn != nil {
				key = keyFn(item)
			}
			return tuple{key: key, cells: cells}
		})}
	})
}
