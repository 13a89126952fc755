package dataframe

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spektr-org/tabula/enumerator"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/index"
)

// ============================================================================
// CONSTRUCTION — Three input forms, one canonical frame
// ============================================================================
// Row-major arrays, keyed records and column-major slices all normalize to
// (column names, index, cells). Eager inputs build an EagerDataFrame;
// RowsFunc / RecordsFunc / IndexOf build a LazyDataFrame.
// ============================================================================

// Config describes a DataFrame to construct. Set at most one row source.
type Config struct {
	// ColumnNames orders the columns. Required names must be unique.
	// Inferred when empty: "0", "1", ... for arrays; the union of record
	// keys in first-seen order for records; sorted map keys for Columns.
	ColumnNames []string

	Rows        [][]any
	Records     []Row
	Columns     map[string][]any
	RowsFunc    enumerator.Iterable[[]any]
	RecordsFunc enumerator.Iterable[Row]

	// Index supplies explicit keys. IndexOf supplies an existing index
	// handle, which the frame then reports from GetIndex. Default: 0..n-1.
	Index   []any
	IndexOf index.Index
}

// New builds a DataFrame from cfg.
func New(cfg Config) (DataFrame, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.RowsFunc != nil:
		return newFromRowsFunc(cfg), nil
	case cfg.RecordsFunc != nil:
		return newFromRecordsFunc(cfg), nil
	}

	names, cols, err := cfg.eagerColumns()
	if err != nil {
		return nil, err
	}
	n := 0
	if len(cols) > 0 {
		n = len(cols[0])
	} else {
		n = len(cfg.Rows) + len(cfg.Records)
	}

	if cfg.IndexOf != nil {
		stored := newEager(names, index.Range(0, n), cols)
		idx := cfg.IndexOf
		return newLazy(fixedColumns(names), idx, func() stream {
			return stream{names: names, rows: withKeys(idx, stored.tuples(), func(k any, t tuple) tuple {
				return tuple{key: k, cells: t.cells}
			})}
		}), nil
	}
	if cfg.Index != nil {
		if len(cfg.Index) != n {
			return nil, tberrors.InvalidArgument("index",
				fmt.Sprintf("has %d keys for %d rows", len(cfg.Index), n))
		}
		return newEager(names, index.New(cfg.Index), cols), nil
	}
	return newEager(names, index.Range(0, n), cols), nil
}

// MustNew is New that panics on error. For literals in tests and examples.
func MustNew(cfg Config) DataFrame {
	df, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return df
}

// Empty returns a frame with no columns and no rows.
func Empty() DataFrame {
	return newEager([]string{}, index.New(nil), [][]any{})
}

// FromRecords builds a frame from keyed records.
func FromRecords(records ...Row) DataFrame {
	return MustNew(Config{Records: records})
}

func (cfg Config) validate() error {
	sources := 0
	for _, set := range []bool{
		cfg.Rows != nil, cfg.Records != nil, cfg.Columns != nil,
		cfg.RowsFunc != nil, cfg.RecordsFunc != nil,
	} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return tberrors.InvalidArgument("config", "more than one row source")
	}
	if cfg.Index != nil && cfg.IndexOf != nil {
		return tberrors.InvalidArgument("config", "both Index and IndexOf set")
	}
	seen := make(map[string]bool, len(cfg.ColumnNames))
	for _, name := range cfg.ColumnNames {
		if seen[name] {
			return tberrors.InvalidArgument("columnNames", fmt.Sprintf("duplicate column %q", name))
		}
		seen[name] = true
	}
	return nil
}

// eagerColumns normalizes the eager row sources into column-major cells.
func (cfg Config) eagerColumns() ([]string, [][]any, error) {
	switch {
	case cfg.Rows != nil:
		return columnsFromRows(cfg.ColumnNames, cfg.Rows)
	case cfg.Records != nil:
		names := cfg.ColumnNames
		if len(names) == 0 {
			names = recordNames(cfg.Records)
		}
		cols := makeColumns(len(names), len(cfg.Records))
		for r, rec := range cfg.Records {
			for c, name := range names {
				cols[c][r] = rec[name]
			}
		}
		return names, cols, nil
	case cfg.Columns != nil:
		return columnsFromMap(cfg.ColumnNames, cfg.Columns)
	}
	names := cfg.ColumnNames
	if names == nil {
		names = []string{}
	}
	return names, makeColumns(len(names), 0), nil
}

func columnsFromRows(names []string, rows [][]any) ([]string, [][]any, error) {
	if len(names) == 0 {
		names = ordinalNames(rows)
	}
	cols := makeColumns(len(names), len(rows))
	for r, row := range rows {
		if len(row) > len(names) {
			return nil, nil, tberrors.InvalidArgument("rows",
				fmt.Sprintf("row %d has %d cells for %d columns", r, len(row), len(names)))
		}
		for c := range names {
			cols[c][r] = cellAt(row, c)
		}
	}
	return names, cols, nil
}

func columnsFromMap(names []string, columns map[string][]any) ([]string, [][]any, error) {
	if len(names) == 0 {
		names = make([]string, 0, len(columns))
		for name := range columns {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	known := nameSet(names)
	n := -1
	for name, col := range columns {
		if !known[name] {
			return nil, nil, tberrors.InvalidArgument("columns", fmt.Sprintf("column %q not in ColumnNames", name))
		}
		if n >= 0 && len(col) != n {
			return nil, nil, tberrors.InvalidArgument("columns", "columns differ in length")
		}
		n = len(col)
	}
	n = max(n, 0)
	cols := make([][]any, len(names))
	for c, name := range names {
		if col, ok := columns[name]; ok {
			cols[c] = col
		} else {
			cols[c] = make([]any, n)
		}
	}
	return names, cols, nil
}

func makeColumns(width, height int) [][]any {
	cols := make([][]any, width)
	for c := range cols {
		cols[c] = make([]any, height)
	}
	return cols
}

func ordinalNames(rows [][]any) []string {
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}
	return ordinals(width)
}

func ordinals(width int) []string {
	names := make([]string, width)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}

// recordNames is the union of record keys in first-seen order. Keys
// within one record are visited in sorted order.
func recordNames(records []Row) []string {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, rec := range records {
		names = appendNewKeys(names, seen, rec)
	}
	return names
}

func appendNewKeys(names []string, seen map[string]bool, rec Row) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		seen[k] = true
	}
	return append(names, keys...)
}

// ── lazy sources ──

func newFromRowsFunc(cfg Config) DataFrame {
	src, idx := cfg.RowsFunc, cfg.keys()
	raw := func(skip, take int) enumerator.Enumerator[tuple] {
		return bounded(withKeys(idx, src(), func(k any, row []any) tuple {
			return tuple{key: k, cells: row}
		}), skip, take)
	}
	if names := cfg.ColumnNames; len(names) > 0 {
		return newLazy(fixedColumns(names), idx, func() stream {
			return stream{names: names, rows: padded(raw(0, -1), len(names))}
		})
	}
	return inferred(idx, raw, (*columnCache).arrays, 0, -1)
}

func newFromRecordsFunc(cfg Config) DataFrame {
	src, idx := cfg.RecordsFunc, cfg.keys()
	raw := func(skip, take int) enumerator.Enumerator[Pair] {
		return bounded(withKeys(idx, src(), func(k any, rec Row) Pair {
			return Pair{Key: k, Row: rec}
		}), skip, take)
	}
	if names := cfg.ColumnNames; len(names) > 0 {
		return newLazy(fixedColumns(names), idx, func() stream {
			return stream{names: names, rows: enumerator.Map(raw(0, -1), func(p Pair) tuple {
				return tuple{key: p.Key, cells: cellsOf(names, p.Row)}
			})}
		})
	}
	return inferred(idx, raw, func(c *columnCache, recs enumerator.Enumerator[Pair]) stream {
		return c.records(nil, recs)
	}, 0, -1)
}

// keys is the explicit index of a lazy source, or nil for 0..n-1.
func (cfg Config) keys() index.Index {
	switch {
	case cfg.IndexOf != nil:
		return cfg.IndexOf
	case cfg.Index != nil:
		return index.New(cfg.Index)
	}
	return nil
}

// inferred builds a frame whose column names come from its rows. The
// names are resolved at most once per frame. Skip and Take narrow raw
// itself, so a bounded view of an unbounded source still terminates; the
// view then infers its columns from the rows it keeps.
func inferred[T any](idx index.Index, raw func(skip, take int) enumerator.Enumerator[T],
	position func(*columnCache, enumerator.Enumerator[T]) stream, skip, take int) *LazyDataFrame {
	cache := new(columnCache)
	start := func() stream { return position(cache, raw(skip, take)) }
	df := newLazy(cache.columns(start), idx, start)
	df.limit = func(s, t int) DataFrame {
		skip, take := narrow(skip, take, s, t)
		return inferred(nil, raw, position, skip, take)
	}
	return df
}

// narrow composes a row window (skip, take) with a further one. A
// negative take means unbounded.
func narrow(skip, take, s, t int) (int, int) {
	if take >= 0 {
		take = max(take-s, 0)
	}
	if t >= 0 && (take < 0 || t < take) {
		take = t
	}
	return skip + s, take
}

func bounded[T any](e enumerator.Enumerator[T], skip, take int) enumerator.Enumerator[T] {
	if skip > 0 {
		e = enumerator.Skip(e, skip)
	}
	if take >= 0 {
		e = enumerator.Take(e, take)
	}
	return e
}

// withKeys pairs items with keys from idx, or with their ordinal when
// idx is nil.
func withKeys[T, U any](idx index.Index, src enumerator.Enumerator[T], fn func(key any, v T) U) enumerator.Enumerator[U] {
	if idx == nil {
		return enumerator.WithIndex(src, func(i int, v T) U { return fn(i, v) })
	}
	return enumerator.Zip(idx.GetEnumerator(), src, fn)
}
