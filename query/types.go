package query

import (
	"github.com/spektr-org/tabula/dataframe"
)

// ============================================================================
// QUERY TYPES — Contract between the translator and the executor
// ============================================================================
// A Spec names frame columns directly: filter columns, group columns and the
// measure column. The translator produces it; Execute consumes it against any
// DataFrame. Nothing here calls an AI service.
// ============================================================================

// Aggregations understood by Execute.
const (
	AggSum   = "sum"
	AggCount = "count"
	AggAvg   = "avg"
	AggMin   = "min"
	AggMax   = "max"
	AggNone  = "none"
)

// Sort modes understood by Execute.
const (
	SortValueDesc = "value_desc"
	SortValueAsc  = "value_asc"
	SortLabelAsc  = "label_asc"
	SortLabelDesc = "label_desc"
)

// Output column names appended after the group columns.
const (
	ValueColumn = "Value"
	CountColumn = "Count"
)

// RecordCount is the synthetic measure meaning "count rows".
const RecordCount = "record_count"

// Spec defines what Execute should compute.
type Spec struct {
	Filters     Filters  `json:"filters" yaml:"filters"`
	GroupBy     []string `json:"groupBy" yaml:"group_by"`
	Aggregation string   `json:"aggregation" yaml:"aggregation"` // sum, count, avg, min, max, none
	Measure     string   `json:"measure" yaml:"measure"`         // empty → default measure
	SortBy      string   `json:"sortBy" yaml:"sort_by"`
	Limit       int      `json:"limit" yaml:"limit"` // 0 = all
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Reply       string   `json:"reply,omitempty" yaml:"reply,omitempty"` // "{total} across {count} rows"
	Confidence  float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"`
}

// Filters restrict rows by column value.
// OR within a column, AND across columns. Matching ignores case.
type Filters struct {
	Columns map[string][]string `json:"columns" yaml:"columns"`
}

// HasFilter reports whether a filter is set for column.
func (f Filters) HasFilter(column string) bool {
	vals, ok := f.Columns[column]
	return ok && len(vals) > 0
}

// IsEmpty reports whether no filters are set.
func (f Filters) IsEmpty() bool {
	for _, vals := range f.Columns {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// Result is the executor's output.
type Result struct {
	// Frame holds one row per group: the group columns, then Value and Count.
	Frame   dataframe.DataFrame `json:"-"`
	Summary string              `json:"summary"`
	Count   int                 `json:"count"` // rows after filtering
	Total   float64             `json:"total"` // measure total after filtering
	Measure string              `json:"measure"`
	Spec    Spec                `json:"spec"`
}

// Group is an intermediate aggregated group.
type Group struct {
	Keys  []any
	Label string
	Value any
	Count int
	rows  []dataframe.Row
}
