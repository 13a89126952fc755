package index

import (
	"github.com/spektr-org/tabula/enumerator"
)

// ============================================================================
// INDEX — Ordered row keys shared by a series or dataframe
// ============================================================================
// Two variants implement Index:
//   LazyIndex  — wraps an Iterable, re-derived on every traversal
//   EagerIndex — wraps a materialized []any
// Identity is the handle, not the keys: two indexes with equal keys are
// still different indexes.
// ============================================================================

// Index is an immutable ordered sequence of row keys.
type Index interface {
	GetEnumerator() enumerator.Enumerator[any]
	ToValues() ([]any, error)
	Count() (int, error)
	First() (any, bool, error)

	// Skip drops the first n keys. Negative n is treated as 0.
	Skip(n int) Index
	// Take keeps the first n keys. Negative n is treated as 0.
	Take(n int) Index
	// GetRowsSubset keeps count keys starting at position start,
	// clamped to the valid range.
	GetRowsSubset(start, count int) Index

	// Bake materializes the keys. Identity for an EagerIndex.
	Bake() (Index, error)
}

// ops holds the algorithms shared by both variants. They depend only on
// the Index interface of self.
type ops struct {
	self Index
}

func (o ops) ToValues() ([]any, error) {
	return enumerator.ToSlice(o.self.GetEnumerator())
}

func (o ops) Count() (int, error) {
	return enumerator.Count(o.self.GetEnumerator())
}

func (o ops) First() (any, bool, error) {
	return enumerator.First(o.self.GetEnumerator())
}

func (o ops) Skip(n int) Index {
	src := o.self
	return NewLazy(func() enumerator.Enumerator[any] {
		return enumerator.Skip(src.GetEnumerator(), n)
	})
}

func (o ops) Take(n int) Index {
	src := o.self
	return NewLazy(func() enumerator.Enumerator[any] {
		return enumerator.Take(src.GetEnumerator(), n)
	})
}

func (o ops) GetRowsSubset(start, count int) Index {
	return o.self.Skip(max(start, 0)).Take(max(count, 0))
}

// ============================================================================
// LAZY
// ============================================================================

// LazyIndex re-derives its keys from a factory on each traversal.
type LazyIndex struct {
	ops
	keys enumerator.Iterable[any]
}

// NewLazy wraps a key factory.
func NewLazy(keys enumerator.Iterable[any]) *LazyIndex {
	ix := &LazyIndex{keys: keys}
	ix.ops = ops{self: ix}
	return ix
}

func (ix *LazyIndex) GetEnumerator() enumerator.Enumerator[any] { return ix.keys() }

func (ix *LazyIndex) Bake() (Index, error) {
	keys, err := ix.ToValues()
	if err != nil {
		return nil, err
	}
	return New(keys), nil
}

// ============================================================================
// EAGER
// ============================================================================

// EagerIndex holds a fixed key slice.
type EagerIndex struct {
	ops
	keys []any
}

// New returns an eager index over keys. The slice is not copied and must
// not be modified afterwards.
func New(keys []any) *EagerIndex {
	if keys == nil {
		keys = []any{}
	}
	ix := &EagerIndex{keys: keys}
	ix.ops = ops{self: ix}
	return ix
}

// Range returns the dense eager index start, start+1, ..., start+count-1.
func Range(start, count int) *EagerIndex {
	keys := make([]any, max(count, 0))
	for i := range keys {
		keys[i] = start + i
	}
	return New(keys)
}

// Counter returns the dense lazy index 0, 1, 2, ... of unbounded length.
func Counter() *LazyIndex {
	return NewLazy(func() enumerator.Enumerator[any] {
		return enumerator.Map(enumerator.Counter(), func(i int) any { return i })
	})
}

func (ix *EagerIndex) GetEnumerator() enumerator.Enumerator[any] {
	return enumerator.FromSlice(ix.keys)
}

func (ix *EagerIndex) ToValues() ([]any, error) {
	out := make([]any, len(ix.keys))
	copy(out, ix.keys)
	return out, nil
}

func (ix *EagerIndex) Count() (int, error) { return len(ix.keys), nil }

func (ix *EagerIndex) Bake() (Index, error) { return ix, nil }

// Keys exposes the backing slice for read-only use.
func (ix *EagerIndex) Keys() []any { return ix.keys }
