package dataframe

import (
	"sort"

	"github.com/spektr-org/tabula/enumerator"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// ORDERING — Whole-row stable multi-key sort
// ============================================================================
// Same scheme as series ordering: the source stays unsorted, criteria
// accumulate through ThenBy, and the sort runs once per traversal.
// ============================================================================

// OrderedDataFrame is a sorted frame that accepts tie-breaking criteria.
type OrderedDataFrame interface {
	DataFrame
	ThenBy(column string) OrderedDataFrame
	ThenByDescending(column string) OrderedDataFrame
	ThenByFunc(sel RowSelector) OrderedDataFrame
	ThenByDescendingFunc(sel RowSelector) OrderedDataFrame
}

type sortCriterion struct {
	sel  RowSelector
	desc bool
}

type orderedFrame struct {
	*LazyDataFrame
	source   frame
	criteria []sortCriterion
}

func byColumn(column string) RowSelector {
	return func(row Row, _ any) any { return row[column] }
}

func (o ops) OrderBy(column string) OrderedDataFrame {
	return newOrderedFrame(o.self, []sortCriterion{{sel: byColumn(column)}})
}

func (o ops) OrderByDescending(column string) OrderedDataFrame {
	return newOrderedFrame(o.self, []sortCriterion{{sel: byColumn(column), desc: true}})
}

func (o ops) OrderByFunc(sel RowSelector) OrderedDataFrame {
	return newOrderedFrame(o.self, []sortCriterion{{sel: sel}})
}

func (o ops) OrderByDescendingFunc(sel RowSelector) OrderedDataFrame {
	return newOrderedFrame(o.self, []sortCriterion{{sel: sel, desc: true}})
}

func newOrderedFrame(source frame, criteria []sortCriterion) *orderedFrame {
	of := &orderedFrame{source: source, criteria: criteria}
	of.LazyDataFrame = newLazy(source.columns, nil, func() stream {
		s := source.open()
		rows, err := enumerator.ToSlice(s.rows)
		if err != nil {
			return failed(s.names, err)
		}
		return stream{names: s.names, rows: enumerator.FromSlice(sortTuples(s.names, rows, criteria))}
	})
	return of
}

func (of *orderedFrame) then(c sortCriterion) OrderedDataFrame {
	criteria := make([]sortCriterion, len(of.criteria), len(of.criteria)+1)
	copy(criteria, of.criteria)
	return newOrderedFrame(of.source, append(criteria, c))
}

func (of *orderedFrame) ThenBy(column string) OrderedDataFrame {
	return of.then(sortCriterion{sel: byColumn(column)})
}

func (of *orderedFrame) ThenByDescending(column string) OrderedDataFrame {
	return of.then(sortCriterion{sel: byColumn(column), desc: true})
}

func (of *orderedFrame) ThenByFunc(sel RowSelector) OrderedDataFrame {
	return of.then(sortCriterion{sel: sel})
}

func (of *orderedFrame) ThenByDescendingFunc(sel RowSelector) OrderedDataFrame {
	return of.then(sortCriterion{sel: sel, desc: true})
}

// sortTuples stably sorts rows. Each selector runs once per row.
func sortTuples(names []string, rows []tuple, criteria []sortCriterion) []tuple {
	keys := make([][]any, len(rows))
	for i, t := range rows {
		row := rowOf(names, t.cells)
		keys[i] = make([]any, len(criteria))
		for c, cr := range criteria {
			keys[i][c] = cr.sel(row, t.key)
		}
	}
	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ka, kb := keys[order[a]], keys[order[b]]
		for c, cr := range criteria {
			cmp := value.Compare(ka[c], kb[c])
			if cmp == 0 {
				continue
			}
			if cr.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	out := make([]tuple, len(rows))
	for i, j := range order {
		out[i] = rows[j]
	}
	return out
}
