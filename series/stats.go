package series

import (
	"github.com/spektr-org/tabula/enumerator"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// AGGREGATION — Folds and numeric summaries
// ============================================================================
// Sum and Average look only at numeric cells; Min and Max order every
// non-absent cell with value.Compare.
// ============================================================================

// Aggregate folds the values left to right starting from seed. A nil seed
// means the first value is the seed.
func (o ops) Aggregate(seed any, fn func(acc, v any) any) (any, error) {
	e := o.self.GetEnumerator()
	acc := seed
	if acc == nil {
		if !e.MoveNext() {
			return nil, e.Err()
		}
		acc = e.Current()
	}
	for e.MoveNext() {
		acc = fn(acc, e.Current())
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return acc, nil
}

// Sum adds the numeric values.
func (o ops) Sum() (float64, error) {
	total, _, err := o.sumCount()
	return total, err
}

// Average is Sum divided by the number of numeric values, or 0 when
// there are none.
func (o ops) Average() (float64, error) {
	total, n, err := o.sumCount()
	if err != nil || n == 0 {
		return 0, err
	}
	return total / float64(n), nil
}

func (o ops) sumCount() (float64, int, error) {
	var total float64
	n := 0
	e := o.self.GetEnumerator()
	for e.MoveNext() {
		if f, ok := value.ToFloat(e.Current()); ok {
			total += f
			n++
		}
	}
	return total, n, e.Err()
}

// Min returns the smallest non-absent value, or nil for an empty series.
func (o ops) Min() (any, error) {
	return o.extreme(func(c int) bool { return c < 0 })
}

// Max returns the largest non-absent value, or nil for an empty series.
func (o ops) Max() (any, error) {
	return o.extreme(func(c int) bool { return c > 0 })
}

func (o ops) extreme(better func(int) bool) (any, error) {
	var best any
	found := false
	e := enumerator.Filter(o.self.GetEnumerator(), func(v any) bool { return !value.IsAbsent(v) })
	for e.MoveNext() {
		v := e.Current()
		if !found || better(value.Compare(v, best)) {
			best, found = v, true
		}
	}
	return best, e.Err()
}
