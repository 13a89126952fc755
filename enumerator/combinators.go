package enumerator

// ============================================================================
// COMBINATORS — Lazy stages over an upstream cursor
// ============================================================================
// Each combinator wraps its source and pulls from it on demand. Upstream
// errors are forwarded through Err untouched.
// ============================================================================

// Map applies fn to every element.
func Map[T, U any](src Enumerator[T], fn func(T) U) Enumerator[U] {
	return FromFunc(func() (U, bool, error) {
		var zero U
		if !src.MoveNext() {
			return zero, false, src.Err()
		}
		return fn(src.Current()), true, nil
	})
}

// MapErr applies fn to every element and stops at the first error it returns.
func MapErr[T, U any](src Enumerator[T], fn func(T) (U, error)) Enumerator[U] {
	return FromFunc(func() (U, bool, error) {
		var zero U
		if !src.MoveNext() {
			return zero, false, src.Err()
		}
		v, err := fn(src.Current())
		if err != nil {
			return zero, false, err
		}
		return v, true, nil
	})
}

// Filter keeps the elements for which pred holds.
func Filter[T any](src Enumerator[T], pred func(T) bool) Enumerator[T] {
	return FromFunc(func() (T, bool, error) {
		for src.MoveNext() {
			if v := src.Current(); pred(v) {
				return v, true, nil
			}
		}
		var zero T
		return zero, false, src.Err()
	})
}

// Skip drops the first n elements. Negative n is treated as 0.
func Skip[T any](src Enumerator[T], n int) Enumerator[T] {
	skipped := false
	return FromFunc(func() (T, bool, error) {
		var zero T
		if !skipped {
			skipped = true
			for i := 0; i < n; i++ {
				if !src.MoveNext() {
					return zero, false, src.Err()
				}
			}
		}
		if !src.MoveNext() {
			return zero, false, src.Err()
		}
		return src.Current(), true, nil
	})
}

// Take yields at most n elements. Negative n is treated as 0.
func Take[T any](src Enumerator[T], n int) Enumerator[T] {
	taken := 0
	return FromFunc(func() (T, bool, error) {
		var zero T
		if taken >= n {
			return zero, false, nil
		}
		if !src.MoveNext() {
			return zero, false, src.Err()
		}
		taken++
		return src.Current(), true, nil
	})
}

// SkipWhile drops leading elements while pred holds.
func SkipWhile[T any](src Enumerator[T], pred func(T) bool) Enumerator[T] {
	skipping := true
	return FromFunc(func() (T, bool, error) {
		for src.MoveNext() {
			v := src.Current()
			if skipping && pred(v) {
				continue
			}
			skipping = false
			return v, true, nil
		}
		var zero T
		return zero, false, src.Err()
	})
}

// TakeWhile yields leading elements while pred holds.
func TakeWhile[T any](src Enumerator[T], pred func(T) bool) Enumerator[T] {
	stopped := false
	return FromFunc(func() (T, bool, error) {
		var zero T
		if stopped || !src.MoveNext() {
			return zero, false, src.Err()
		}
		v := src.Current()
		if !pred(v) {
			stopped = true
			return zero, false, nil
		}
		return v, true, nil
	})
}

// Concat yields every element of each source in turn.
func Concat[T any](srcs ...Enumerator[T]) Enumerator[T] {
	i := 0
	return FromFunc(func() (T, bool, error) {
		for i < len(srcs) {
			if srcs[i].MoveNext() {
				return srcs[i].Current(), true, nil
			}
			if err := srcs[i].Err(); err != nil {
				var zero T
				return zero, false, err
			}
			i++
		}
		var zero T
		return zero, false, nil
	})
}

// Zip pairs elements positionally and stops at the shorter source.
func Zip[A, B, U any](a Enumerator[A], b Enumerator[B], fn func(A, B) U) Enumerator[U] {
	return FromFunc(func() (U, bool, error) {
		var zero U
		if !a.MoveNext() {
			return zero, false, a.Err()
		}
		if !b.MoveNext() {
			return zero, false, b.Err()
		}
		return fn(a.Current(), b.Current()), true, nil
	})
}

// WithIndex pairs each element with its ordinal position.
func WithIndex[T, U any](src Enumerator[T], fn func(int, T) U) Enumerator[U] {
	i := -1
	return Map(src, func(v T) U {
		i++
		return fn(i, v)
	})
}
