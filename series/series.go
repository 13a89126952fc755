package series

import (
	"github.com/spektr-org/tabula/enumerator"
	"github.com/spektr-org/tabula/index"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// SERIES — One named, index-aligned column of values
// ============================================================================
// A series is (name, index, values) where the i-th value pairs with the
// i-th index key. LazySeries re-derives its pairs on every traversal;
// EagerSeries holds them materialized. Every transformation returns a new
// LazySeries composed over its receiver.
// ============================================================================

// Pair is one (index key, value) association.
type Pair struct {
	Key   any
	Value any
}

// Selector projects a value to a sort or grouping key. A nil Selector
// means the value itself.
type Selector func(v any) any

// Series is the capability set shared by both variants.
type Series interface {
	Name() string
	Rename(name string) Series
	GetIndex() index.Index

	GetEnumerator() enumerator.Enumerator[any]
	GetPairsEnumerator() enumerator.Enumerator[Pair]
	ToValues() ([]any, error)
	ToPairs() ([]Pair, error)
	Count() (int, error)
	First() (any, bool, error)

	Skip(n int) Series
	Take(n int) Series
	GetRowsSubset(start, count int) Series
	Where(pred func(v, key any) bool) Series
	Select(fn func(v, key any) any) Series
	DropAbsent() Series

	OrderBy(sel Selector) OrderedSeries
	OrderByDescending(sel Selector) OrderedSeries

	Aggregate(seed any, fn func(acc, v any) any) (any, error)
	Sum() (float64, error)
	Average() (float64, error)
	Min() (any, error)
	Max() (any, error)

	// Bake materializes the series. Identity for an EagerSeries.
	Bake() (Series, error)
}

// ============================================================================
// LAZY
// ============================================================================

// LazySeries is a series defined by a pair factory.
type LazySeries struct {
	ops
	name  string
	idx   index.Index
	pairs enumerator.Iterable[Pair]
}

func newLazy(name string, idx index.Index, pairs enumerator.Iterable[Pair]) *LazySeries {
	s := &LazySeries{name: name, pairs: pairs}
	if idx == nil {
		idx = index.NewLazy(func() enumerator.Enumerator[any] {
			return enumerator.Map(pairs(), func(p Pair) any { return p.Key })
		})
	}
	s.idx = idx
	s.ops = ops{self: s}
	return s
}

// NewLazy builds a series over idx whose values come from a factory. The
// returned series reports idx itself from GetIndex.
func NewLazy(name string, idx index.Index, values enumerator.Iterable[any]) *LazySeries {
	return newLazy(name, idx, func() enumerator.Enumerator[Pair] {
		return enumerator.Zip(idx.GetEnumerator(), values(), func(k, v any) Pair {
			return Pair{Key: k, Value: v}
		})
	})
}

// FromPairs builds a series from a pair factory. Its index is derived
// from the pairs.
func FromPairs(name string, pairs enumerator.Iterable[Pair]) *LazySeries {
	return newLazy(name, nil, pairs)
}

func (s *LazySeries) Name() string { return s.name }

func (s *LazySeries) Rename(name string) Series { return newLazy(name, s.idx, s.pairs) }

func (s *LazySeries) GetIndex() index.Index { return s.idx }

func (s *LazySeries) GetPairsEnumerator() enumerator.Enumerator[Pair] { return s.pairs() }

func (s *LazySeries) Bake() (Series, error) {
	pairs, err := s.ToPairs()
	if err != nil {
		return nil, err
	}
	keys := make([]any, len(pairs))
	vals := make([]any, len(pairs))
	for i, p := range pairs {
		keys[i], vals[i] = p.Key, p.Value
	}
	return newEager(s.name, index.New(keys), vals), nil
}

// ============================================================================
// EAGER
// ============================================================================

// EagerSeries holds a materialized index and value slice.
type EagerSeries struct {
	ops
	name   string
	idx    *index.EagerIndex
	values []any
}

func newEager(name string, idx *index.EagerIndex, values []any) *EagerSeries {
	s := &EagerSeries{name: name, idx: idx, values: values}
	s.ops = ops{self: s}
	return s
}

// New builds an eager series. With a nil idx the index is 0..n-1.
// Extra keys beyond len(values) are dropped so counts stay equal.
func New(name string, values []any, idx []any) *EagerSeries {
	if values == nil {
		values = []any{}
	}
	if idx == nil {
		return newEager(name, index.Range(0, len(values)), values)
	}
	if len(idx) > len(values) {
		idx = idx[:len(values)]
	}
	if len(values) > len(idx) {
		values = values[:len(idx)]
	}
	return newEager(name, index.New(idx), values)
}

// FromValues builds an eager series indexed 0..n-1.
func FromValues(name string, values ...any) *EagerSeries {
	return New(name, values, nil)
}

// Empty returns a series with no rows.
func Empty(name string) *EagerSeries {
	return New(name, nil, nil)
}

func (s *EagerSeries) Name() string { return s.name }

func (s *EagerSeries) Rename(name string) Series { return newEager(name, s.idx, s.values) }

func (s *EagerSeries) GetIndex() index.Index { return s.idx }

func (s *EagerSeries) GetEnumerator() enumerator.Enumerator[any] {
	return enumerator.FromSlice(s.values)
}

func (s *EagerSeries) GetPairsEnumerator() enumerator.Enumerator[Pair] {
	keys := s.idx.Keys()
	i := 0
	return enumerator.FromFunc(func() (Pair, bool, error) {
		if i >= len(s.values) || i >= len(keys) {
			return Pair{}, false, nil
		}
		p := Pair{Key: keys[i], Value: s.values[i]}
		i++
		return p, true, nil
	})
}

func (s *EagerSeries) ToValues() ([]any, error) {
	out := make([]any, len(s.values))
	copy(out, s.values)
	return out, nil
}

func (s *EagerSeries) Count() (int, error) { return len(s.values), nil }

func (s *EagerSeries) Bake() (Series, error) { return s, nil }

// ============================================================================
// SHARED OPERATIONS
// ============================================================================

type ops struct {
	self Series
}

func (o ops) GetEnumerator() enumerator.Enumerator[any] {
	return enumerator.Map(o.self.GetPairsEnumerator(), func(p Pair) any { return p.Value })
}

func (o ops) ToValues() ([]any, error) { return enumerator.ToSlice(o.self.GetEnumerator()) }

func (o ops) ToPairs() ([]Pair, error) { return enumerator.ToSlice(o.self.GetPairsEnumerator()) }

func (o ops) Count() (int, error) { return enumerator.Count(o.self.GetPairsEnumerator()) }

func (o ops) First() (any, bool, error) { return enumerator.First(o.self.GetEnumerator()) }

func (o ops) derive(wrap func(enumerator.Enumerator[Pair]) enumerator.Enumerator[Pair]) Series {
	src := o.self
	return newLazy(src.Name(), nil, func() enumerator.Enumerator[Pair] {
		return wrap(src.GetPairsEnumerator())
	})
}

func (o ops) Skip(n int) Series {
	return o.derive(func(e enumerator.Enumerator[Pair]) enumerator.Enumerator[Pair] {
		return enumerator.Skip(e, n)
	})
}

func (o ops) Take(n int) Series {
	return o.derive(func(e enumerator.Enumerator[Pair]) enumerator.Enumerator[Pair] {
		return enumerator.Take(e, n)
	})
}

func (o ops) GetRowsSubset(start, count int) Series {
	return o.self.Skip(max(start, 0)).Take(max(count, 0))
}

func (o ops) Where(pred func(v, key any) bool) Series {
	return o.derive(func(e enumerator.Enumerator[Pair]) enumerator.Enumerator[Pair] {
		return enumerator.Filter(e, func(p Pair) bool { return pred(p.Value, p.Key) })
	})
}

// Select maps values and keeps the receiver's index.
func (o ops) Select(fn func(v, key any) any) Series {
	src := o.self
	return newLazy(src.Name(), src.GetIndex(), func() enumerator.Enumerator[Pair] {
		return enumerator.Map(src.GetPairsEnumerator(), func(p Pair) Pair {
			return Pair{Key: p.Key, Value: fn(p.Value, p.Key)}
		})
	})
}

func (o ops) DropAbsent() Series {
	return o.self.Where(func(v, _ any) bool { return !value.IsAbsent(v) })
}

func (o ops) OrderBy(sel Selector) OrderedSeries {
	return newOrdered(o.self, []criterion{{sel: sel}})
}

func (o ops) OrderByDescending(sel Selector) OrderedSeries {
	return newOrdered(o.self, []criterion{{sel: sel, desc: true}})
}
