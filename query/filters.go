package query

import (
	"strings"

	"github.com/spektr-org/tabula/dataframe"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// FILTERS — Column value filtering over a DataFrame
// ============================================================================
// Single-pass filter: each row checks every column constraint in one loop.
// The result is a lazy Where over the source frame.
// ============================================================================

// ApplyFilters returns the rows of df matching every column filter.
// Columns are AND-combined; values within a column are OR-combined and
// compared case-insensitively against the cell's string form.
// Empty filters return df itself.
func ApplyFilters(df dataframe.DataFrame, filters Filters) (dataframe.DataFrame, error) {
	if filters.IsEmpty() {
		return df, nil
	}

	sets := make(map[string]map[string]bool)
	for col, allowed := range filters.Columns {
		if len(allowed) == 0 {
			continue
		}
		if !df.HasSeries(col) {
			return nil, tberrors.MissingColumn("filter", col)
		}
		sets[col] = toLowerSet(allowed)
	}

	return df.Where(func(row dataframe.Row, _ any) bool {
		for col, set := range sets {
			if !set[strings.ToLower(value.ToString(row[col]))] {
				return false
			}
		}
		return true
	}), nil
}

// toLowerSet converts a string slice to a lowercase lookup set.
func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[strings.ToLower(item)] = true
	}
	return set
}

// filterLabel creates a human-readable label from Filters.
func filterLabel(f Filters) string {
	if f.IsEmpty() {
		return "all rows"
	}
	parts := []string{}
	for _, col := range sortedKeys(f.Columns) {
		if vals := f.Columns[col]; len(vals) > 0 {
			parts = append(parts, col+"="+strings.Join(vals, "|"))
		}
	}
	return strings.Join(parts, ", ")
}
