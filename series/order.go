package series

import (
	"sort"

	"github.com/spektr-org/tabula/enumerator"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// ORDERING — Stable multi-key sort
// ============================================================================
// An ordered series keeps its unsorted source and the list of criteria.
// ThenBy appends a criterion; the sort runs on each traversal, with each
// criterion breaking ties left by the previous one.
// ============================================================================

// OrderedSeries is a sorted series that accepts tie-breaking criteria.
type OrderedSeries interface {
	Series
	ThenBy(sel Selector) OrderedSeries
	ThenByDescending(sel Selector) OrderedSeries
}

type criterion struct {
	sel  Selector
	desc bool
}

type orderedSeries struct {
	*LazySeries
	source   Series
	criteria []criterion
}

func newOrdered(source Series, criteria []criterion) *orderedSeries {
	o := &orderedSeries{source: source, criteria: criteria}
	o.LazySeries = FromPairs(source.Name(), func() enumerator.Enumerator[Pair] {
		pairs, err := source.ToPairs()
		if err != nil {
			return enumerator.Failed[Pair](err)
		}
		return enumerator.FromSlice(sortPairs(pairs, criteria))
	})
	return o
}

func (o *orderedSeries) ThenBy(sel Selector) OrderedSeries {
	return newOrdered(o.source, appendCriterion(o.criteria, criterion{sel: sel}))
}

func (o *orderedSeries) ThenByDescending(sel Selector) OrderedSeries {
	return newOrdered(o.source, appendCriterion(o.criteria, criterion{sel: sel, desc: true}))
}

func appendCriterion(list []criterion, c criterion) []criterion {
	out := make([]criterion, len(list), len(list)+1)
	copy(out, list)
	return append(out, c)
}

// sortPairs returns pairs stably sorted by the criteria. Each selector
// runs once per pair.
func sortPairs(pairs []Pair, criteria []criterion) []Pair {
	keys := make([][]any, len(pairs))
	for i, p := range pairs {
		keys[i] = make([]any, len(criteria))
		for c, cr := range criteria {
			if cr.sel == nil {
				keys[i][c] = p.Value
			} else {
				keys[i][c] = cr.sel(p.Value)
			}
		}
	}
	order := make([]int, len(pairs))
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
	out := make([]Pair, len(pairs))
	for i, j := range order {
		out[i] = pairs[j]
	}
	return out
}
