package enumerator

import "iter"

// All adapts an Iterable to a range-over-func sequence. The error slot is
// non-nil at most once, on the final iteration.
//
//	for v, err := range enumerator.All(it) { ... }
func All[T any](it Iterable[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		e := it()
		for e.MoveNext() {
			if !yield(e.Current(), nil) {
				return
			}
		}
		if err := e.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}
