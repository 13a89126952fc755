package query

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spektr-org/tabula/dataframe"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// AGGREGATORS — Grouping, Aggregation, and Sorting over materialized rows
// ============================================================================
// The filtered frame is enumerated once; groups keep their rows so the
// aggregate and the reply placeholders read the same snapshot.
// ============================================================================

// GroupAndAggregate is the main entry point for the aggregation pipeline.
// Pipeline: group → aggregate → sort → limit.
func GroupAndAggregate(rows []dataframe.Row, groupBy []string, measure, aggregation, sortBy string, limit int) []Group {
	if len(rows) == 0 {
		return nil
	}

	// 1. Group
	groups := groupRows(rows, groupBy)

	// 2. Aggregate
	for i := range groups {
		aggregateGroup(&groups[i], measure, aggregation)
	}

	// 3. Sort
	SortGroups(groups, sortBy)

	// 4. Limit
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}

// ============================================================================
// GROUPING
// ============================================================================

// groupRows buckets rows by the tuple of their group column values,
// keeping first-seen group order.
func groupRows(rows []dataframe.Row, groupBy []string) []Group {
	if len(groupBy) == 0 {
		return []Group{{Label: "Total", rows: rows}}
	}

	pos := make(map[string]int)
	var groups []Group
	for _, row := range rows {
		keys := make([]any, len(groupBy))
		for i, col := range groupBy {
			keys[i] = row[col]
		}
		id := groupID(keys)
		at, ok := pos[id]
		if !ok {
			at = len(groups)
			pos[id] = at
			groups = append(groups, Group{Keys: keys, Label: groupLabel(keys)})
		}
		groups[at].rows = append(groups[at].rows, row)
	}
	return groups
}

func groupID(keys []any) string {
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%T:%v\x00", value.Key(k), value.Key(k))
	}
	return b.String()
}

func groupLabel(keys []any) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = value.ToString(k)
	}
	return strings.Join(parts, " / ")
}

// ============================================================================
// AGGREGATION
// ============================================================================

func aggregateGroup(g *Group, measure, aggregation string) {
	g.Count = len(g.rows)
	if g.Count == 0 {
		return
	}
	if measure == "" && aggregation != AggNone {
		aggregation = AggCount
	}

	switch aggregation {
	case AggCount:
		g.Value = g.Count
	case AggAvg:
		g.Value = avgOrAbsent(measureValues(g.rows, measure))
	case AggMax:
		g.Value = extremeOrAbsent(measureValues(g.rows, measure), 1)
	case AggMin:
		g.Value = extremeOrAbsent(measureValues(g.rows, measure), -1)
	case AggNone:
		// pass through
	default:
		g.Value = SumMeasure(g.rows, measure)
	}
}

// measureValues collects the numeric cells of a column, skipping absent
// and non-numeric cells.
func measureValues(rows []dataframe.Row, measure string) []float64 {
	vals := make([]float64, 0, len(rows))
	for _, row := range rows {
		if f, ok := value.ToFloat(row[measure]); ok {
			vals = append(vals, f)
		}
	}
	return vals
}

// SumMeasure sums a numeric column across rows.
func SumMeasure(rows []dataframe.Row, measure string) float64 {
	var total float64
	for _, v := range measureValues(rows, measure) {
		total += v
	}
	return total
}

func avgOrAbsent(vals []float64) any {
	if len(vals) == 0 {
		return nil
	}
	var total float64
	for _, v := range vals {
		total += v
	}
	return total / float64(len(vals))
}

// extremeOrAbsent returns the max (sign 1) or min (sign -1) of vals.
func extremeOrAbsent(vals []float64, sign float64) any {
	if len(vals) == 0 {
		return nil
	}
	m := math.Inf(-int(sign))
	for _, v := range vals {
		if v*sign > m*sign {
			m = v
		}
	}
	return m
}

// ============================================================================
// SORTING
// ============================================================================

// SortGroups sorts groups in place. Unknown modes keep grouping order.
// Sorting is stable; absent values sort first ascending.
func SortGroups(groups []Group, sortBy string) {
	var less func(a, b Group) bool
	switch sortBy {
	case SortValueDesc:
		less = func(a, b Group) bool { return value.Compare(a.Value, b.Value) > 0 }
	case SortValueAsc:
		less = func(a, b Group) bool { return value.Compare(a.Value, b.Value) < 0 }
	case SortLabelAsc:
		less = func(a, b Group) bool { return compareKeys(a.Keys, b.Keys) < 0 }
	case SortLabelDesc:
		less = func(a, b Group) bool { return compareKeys(a.Keys, b.Keys) > 0 }
	default:
		return
	}
	sort.SliceStable(groups, func(i, j int) bool { return less(groups[i], groups[j]) })
}

// compareKeys orders group key tuples. Strings compare case-insensitively;
// numbers and dates use their natural order.
func compareKeys(a, b []any) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		x, y := a[i], b[i]
		if xs, ok := x.(string); ok {
			if ys, ok := y.(string); ok {
				x, y = strings.ToLower(xs), strings.ToLower(ys)
			}
		}
		if c := value.Compare(x, y); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
