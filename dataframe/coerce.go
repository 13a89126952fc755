package dataframe

import (
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// TYPE COERCION — Per-column parsing, failing at enumeration
// ============================================================================
// Absent cells pass through. A cell that cannot be converted stops the
// traversal with PARSE_FAILURE naming the column and the value.
// ============================================================================

func (o ops) coerce(names []string, parse func(any) (any, error)) DataFrame {
	set := nameSet(names)
	return o.mapCells(func(column string) bool { return set[column] }, func(column string, v any) (any, error) {
		out, err := parse(v)
		if err != nil {
			return nil, tberrors.ParseFailure(column, v, err)
		}
		return out, nil
	})
}

// ParseInts converts the named columns to int.
func (o ops) ParseInts(names ...string) DataFrame {
	return o.coerce(names, value.ParseInt)
}

// ParseFloats converts the named columns to float64.
func (o ops) ParseFloats(names ...string) DataFrame {
	return o.coerce(names, value.ParseFloat)
}

// ParseDates converts the named columns to time.Time using value.DateLayouts.
func (o ops) ParseDates(names ...string) DataFrame {
	return o.coerce(names, value.ParseDate)
}

// ParseDatesLayout converts the named columns to time.Time using layout.
func (o ops) ParseDatesLayout(layout string, names ...string) DataFrame {
	return o.coerce(names, func(v any) (any, error) {
		return value.ParseDateLayouts(v, layout)
	})
}

// ToStrings renders the named columns with value.ToString.
func (o ops) ToStrings(names ...string) DataFrame {
	return o.coerce(names, func(v any) (any, error) {
		return value.ToString(v), nil
	})
}
