package enumerator

// ============================================================================
// ENUMERATOR — Single-pass pull cursor
// ============================================================================
// Every lazy value in tabula is a factory of enumerators. A traversal pulls
// one element at a time; nothing upstream runs until MoveNext is called.
// An enumerator is spent once MoveNext returns false and is never reused.
// ============================================================================

// Enumerator is a single-pass cursor over a sequence.
//
// Usage mirrors sql.Rows:
//
//	e := it()
//	for e.MoveNext() {
//		v := e.Current()
//	}
//	if err := e.Err(); err != nil { ... }
type Enumerator[T any] interface {
	// MoveNext advances to the next element. It returns false when the
	// sequence is exhausted or a failure stopped it.
	MoveNext() bool

	// Current returns the element at the cursor. Only valid after a
	// MoveNext call that returned true.
	Current() T

	// Err returns the failure that stopped the traversal, or nil.
	Err() error
}

// Iterable is a lazy sequence definition. Each call mints a fresh cursor.
type Iterable[T any] func() Enumerator[T]

// ============================================================================
// FUNC ENUMERATOR — The one concrete cursor all combinators build on
// ============================================================================

type funcEnumerator[T any] struct {
	next func() (T, bool, error)
	cur  T
	err  error
	done bool
}

// FromFunc adapts a pull function into an Enumerator. next reports the
// element, whether one was produced, and any failure. After next returns
// false or an error it is not called again.
func FromFunc[T any](next func() (T, bool, error)) Enumerator[T] {
	return &funcEnumerator[T]{next: next}
}

func (e *funcEnumerator[T]) MoveNext() bool {
	if e.done {
		return false
	}
	v, ok, err := e.next()
	if err != nil {
		var zero T
		e.cur, e.err, e.done = zero, err, true
		return false
	}
	if !ok {
		var zero T
		e.cur, e.done = zero, true
		return false
	}
	e.cur = v
	return true
}

func (e *funcEnumerator[T]) Current() T { return e.cur }

func (e *funcEnumerator[T]) Err() error { return e.err }

// ============================================================================
// SOURCES
// ============================================================================

// FromSlice enumerates items in order. The slice is not copied.
func FromSlice[T any](items []T) Enumerator[T] {
	i := 0
	return FromFunc(func() (T, bool, error) {
		if i >= len(items) {
			var zero T
			return zero, false, nil
		}
		v := items[i]
		i++
		return v, true, nil
	})
}

// Of returns an Iterable over items.
func Of[T any](items []T) Iterable[T] {
	return func() Enumerator[T] { return FromSlice(items) }
}

// Empty returns an exhausted enumerator.
func Empty[T any]() Enumerator[T] {
	return FromFunc(func() (T, bool, error) {
		var zero T
		return zero, false, nil
	})
}

// Failed returns an enumerator that stops immediately with err.
func Failed[T any](err error) Enumerator[T] {
	return FromFunc(func() (T, bool, error) {
		var zero T
		return zero, false, err
	})
}

// Counter yields 0, 1, 2, ... without end. Bound it with Take.
func Counter() Enumerator[int] {
	n := 0
	return FromFunc(func() (int, bool, error) {
		v := n
		n++
		return v, true, nil
	})
}

// ============================================================================
// SINKS
// ============================================================================

// ToSlice drains e.
func ToSlice[T any](e Enumerator[T]) ([]T, error) {
	out := make([]T, 0)
	for e.MoveNext() {
		out = append(out, e.Current())
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count drains e and returns the number of elements seen.
func Count[T any](e Enumerator[T]) (int, error) {
	n := 0
	for e.MoveNext() {
		n++
	}
	return n, e.Err()
}

// First returns the first element of e, if any.
func First[T any](e Enumerator[T]) (T, bool, error) {
	if e.MoveNext() {
		return e.Current(), true, nil
	}
	var zero T
	return zero, false, e.Err()
}
