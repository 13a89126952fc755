package dataframe

import (
	"fmt"
	"slices"
	"sync"

	"github.com/spektr-org/tabula/enumerator"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/index"
	"github.com/spektr-org/tabula/series"
)

// ============================================================================
// DATAFRAME — Named series sharing one index
// ============================================================================
// Rows flow internally as tuples: an index key plus cells positioned by
// the frame's column names. Callers see rows as Row maps where absent
// cells are simply missing keys.
//
// Two variants implement DataFrame:
//   LazyDataFrame  — traversal factory, re-derived per materialization
//   EagerDataFrame — column-major materialized storage
// ============================================================================

// Row is one keyed record. Absent cells have no entry.
type Row = map[string]any

// Pair is one row together with its index key.
type Pair struct {
	Key any
	Row Row
}

// Column is a named series view of one column.
type Column struct {
	Name   string
	Series series.Series
}

// RowSelector computes a value from a row and its index key.
type RowSelector func(row Row, key any) any

// DataFrame is the capability set shared by both variants.
type DataFrame interface {
	// ── read ──

	GetColumnNames() []string
	GetColumnIndex(name string) int
	GetColumns() []Column
	GetIndex() index.Index
	// GetSeries is tolerant: an unknown name yields an empty series.
	// Absent cells are stripped along with their keys.
	GetSeries(name string) series.Series
	// ExpectSeries fails with MISSING_COLUMN for an unknown name.
	ExpectSeries(name string) (series.Series, error)
	HasSeries(name string) bool

	GetEnumerator() enumerator.Enumerator[Pair]
	ToRows() ([][]any, error)
	ToPairs() ([]Pair, error)
	ToValues() ([]Row, error)
	ToObject(keyFn, valueFn RowSelector) (map[any]any, error)
	ToJSON() (string, error)
	ToCSV() (string, error)
	Count() (int, error)
	First() (Pair, bool, error)
	Contains(row Row) (bool, error)

	// ── columns ──

	SetSeries(name string, s series.Series) DataFrame
	SetValues(name string, values []any) DataFrame
	SetGenerated(name string, fn RowSelector) DataFrame
	DropSeries(names ...string) DataFrame
	KeepSeries(names ...string) DataFrame
	RenameSeries(mapping map[string]string) DataFrame
	RenameColumns(names []string) (DataFrame, error)
	RemapColumns(names []string) DataFrame
	Subset(names []string) DataFrame
	BringToFront(names ...string) DataFrame
	BringToBack(names ...string) DataFrame
	TransformSeries(fns map[string]func(v any) any) DataFrame
	GenerateSeries(fns map[string]RowSelector) DataFrame
	GenerateRecords(fn func(row Row, key any) Row) DataFrame
	InflateColumn(name string) DataFrame
	TruncateStrings(maxLen int) DataFrame
	SetIndex(name string) (DataFrame, error)
	ResetIndex() DataFrame
	WithIndex(idx index.Index) DataFrame

	ParseInts(names ...string) DataFrame
	ParseFloats(names ...string) DataFrame
	ParseDates(names ...string) DataFrame
	ParseDatesLayout(layout string, names ...string) DataFrame
	ToStrings(names ...string) DataFrame

	// ── rows ──

	Skip(n int) DataFrame
	Take(n int) DataFrame
	GetRowsSubset(start, count int) DataFrame
	Where(pred func(row Row, key any) bool) DataFrame
	OrderBy(column string) OrderedDataFrame
	OrderByDescending(column string) OrderedDataFrame
	OrderByFunc(sel RowSelector) OrderedDataFrame
	OrderByDescendingFunc(sel RowSelector) OrderedDataFrame
	Slice(startKey, endKey any, less func(a, b any) bool) DataFrame
	SliceFunc(startWhile, endWhile func(key any) bool) DataFrame
	InsertPair(key any, row Row) DataFrame
	AppendPair(key any, row Row) DataFrame

	// ── reshape ──

	DetectTypes() DataFrame
	DetectValues() DataFrame
	Pivot(groupColumn, valueColumn string) (DataFrame, error)
	Deflate(fn RowSelector) series.Series

	// ── aggregate ──

	Aggregate(fn func(acc any, row Row) any) (any, error)
	AggregateSeed(seed any, fn func(acc any, row Row) any) (any, error)
	AggregateColumns(seeds Row, fns map[string]func(acc, v any) any) (Row, error)

	// ── alignment ──

	Zip(others []DataFrame, fn func(rows []Row) Row) DataFrame
	Concat(others ...DataFrame) DataFrame
	Distinct(fn RowSelector) DataFrame
	SequentialDistinct(fn RowSelector) DataFrame
	VariableWindow(pred func(prev, next Row) bool) series.Series
	GroupBy(fn RowSelector) series.Series
	Join(inner DataFrame, outerKey, innerKey RowSelector, fn func(outer, inner Row) Row) DataFrame
	JoinOuter(inner DataFrame, outerKey, innerKey RowSelector, fn func(outer, inner Row) Row) DataFrame
	JoinOuterLeft(inner DataFrame, outerKey, innerKey RowSelector, fn func(outer, inner Row) Row) DataFrame
	JoinOuterRight(inner DataFrame, outerKey, innerKey RowSelector, fn func(outer, inner Row) Row) DataFrame

	// ── output ──

	// Bake materializes the frame. Identity for an EagerDataFrame.
	Bake() (DataFrame, error)
	As(f Formatter) Output
}

// tuple is the internal row shape: cells are positioned by column name.
type tuple struct {
	key   any
	cells []any
}

// stream is one started traversal. Its tuples are positioned by names,
// which downstream stages read instead of asking the frame again.
type stream struct {
	names []string
	rows  enumerator.Enumerator[tuple]
}

func failed(names []string, err error) stream {
	if names == nil {
		names = []string{}
	}
	return stream{names: names, rows: enumerator.Failed[tuple](err)}
}

// frame is implemented by both variants; open is the primitive every
// shared algorithm is written against.
type frame interface {
	DataFrame
	// columns returns the column names. Without resolve it answers only
	// when that needs no traversal.
	columns(resolve bool) ([]string, bool)
	open() stream
}

// ============================================================================
// LAZY
// ============================================================================

// columnsFunc resolves a lazy frame's column names.
type columnsFunc func(resolve bool) ([]string, bool)

// LazyDataFrame re-derives its rows from a factory on every traversal.
type LazyDataFrame struct {
	ops
	cols  columnsFunc
	idx   index.Index
	start func() stream

	// limit bounds the raw source of a frame whose names come from its
	// rows, so Skip and Take work on unbounded sources. Nil otherwise.
	limit func(skip, take int) DataFrame
}

// newLazy builds a lazy frame. A nil idx is derived from the rows' keys
// once here, so repeated GetIndex calls return the same handle.
func newLazy(cols columnsFunc, idx index.Index, start func() stream) *LazyDataFrame {
	df := &LazyDataFrame{cols: cols, start: start}
	if idx == nil {
		idx = index.NewLazy(func() enumerator.Enumerator[any] {
			return enumerator.Map(start().rows, func(t tuple) any { return t.key })
		})
	}
	df.idx = idx
	df.ops = ops{self: df}
	return df
}

// fixedColumns reports names that are known up front.
func fixedColumns(names []string) columnsFunc {
	return func(bool) ([]string, bool) { return slices.Clone(names), true }
}

// derivedColumns computes names from the source's names alone.
func derivedColumns(src frame, fn func(srcNames []string) []string) columnsFunc {
	return func(resolve bool) ([]string, bool) {
		ns, ok := src.columns(resolve)
		if !ok {
			return nil, false
		}
		return fn(slices.Clone(ns)), true
	}
}

func (df *LazyDataFrame) GetColumnNames() []string {
	names, _ := df.cols(true)
	if names == nil {
		return []string{}
	}
	return slices.Clone(names)
}

func (df *LazyDataFrame) columns(resolve bool) ([]string, bool) { return df.cols(resolve) }

func (df *LazyDataFrame) GetIndex() index.Index { return df.idx }

func (df *LazyDataFrame) open() stream { return df.start() }

func (df *LazyDataFrame) Bake() (DataFrame, error) {
	s := df.start()
	keys := make([]any, 0)
	cols := make([][]any, len(s.names))
	for c := range cols {
		cols[c] = make([]any, 0)
	}
	for s.rows.MoveNext() {
		t := s.rows.Current()
		keys = append(keys, t.key)
		for c := range cols {
			cols[c] = append(cols[c], cellAt(t.cells, c))
		}
	}
	if err := s.rows.Err(); err != nil {
		return nil, err
	}
	return newEager(s.names, index.New(keys), cols), nil
}

// ── inferred column sets ──

// columnCache holds the column names of a frame whose names come from
// its rows. The first traversal that completes sets them; later
// traversals stream against them. Only names are kept, never rows.
type columnCache struct {
	mu    sync.Mutex
	names []string
	set   bool
}

func (c *columnCache) get() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.names, c.set
}

// put stores names unless another traversal got there first, and
// returns the names in effect.
func (c *columnCache) put(names []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		c.names, c.set = names, true
	}
	return c.names
}

// columns resolves through the cache, running one traversal of start
// when the names are still unknown. A failing traversal leaves the cache
// empty so the error surfaces again when the rows are read.
func (c *columnCache) columns(start func() stream) columnsFunc {
	return func(resolve bool) ([]string, bool) {
		if names, ok := c.get(); ok {
			return names, true
		}
		if !resolve {
			return nil, false
		}
		s := start()
		for s.rows.MoveNext() {
		}
		if names, ok := c.get(); ok {
			return names, true
		}
		return s.names, true
	}
}

// records positions a record stream. base leads the column order; keys
// first seen in the records follow. With the names still unknown the
// records are buffered once to find them.
func (c *columnCache) records(base []string, recs enumerator.Enumerator[Pair]) stream {
	if names, ok := c.get(); ok {
		return stream{names: names, rows: enumerator.Map(recs, func(p Pair) tuple {
			return tuple{key: p.Key, cells: cellsOf(names, p.Row)}
		})}
	}
	names := slices.Clone(base)
	seen := nameSet(names)
	pairs := make([]Pair, 0)
	for recs.MoveNext() {
		p := recs.Current()
		names = appendNewKeys(names, seen, p.Row)
		pairs = append(pairs, p)
	}
	if err := recs.Err(); err != nil {
		return failed(names, err)
	}
	names = c.put(names)
	return stream{names: names, rows: enumerator.Map(enumerator.FromSlice(pairs), func(p Pair) tuple {
		return tuple{key: p.Key, cells: cellsOf(names, p.Row)}
	})}
}

// arrays positions rows of raw cells. The names are ordinals covering the
// widest row; with them still unknown the rows are buffered once.
func (c *columnCache) arrays(raw enumerator.Enumerator[tuple]) stream {
	if names, ok := c.get(); ok {
		return stream{names: names, rows: padded(raw, len(names))}
	}
	rows := make([]tuple, 0)
	width := 0
	for raw.MoveNext() {
		t := raw.Current()
		width = max(width, len(t.cells))
		rows = append(rows, t)
	}
	if err := raw.Err(); err != nil {
		return failed(ordinals(width), err)
	}
	names := c.put(ordinals(width))
	return stream{names: names, rows: padded(enumerator.FromSlice(rows), len(names))}
}

// recordFrame builds a frame from a stage that emits records. open starts
// the stage, returning the names leading the column order and the
// records; keys the records introduce follow. narrowed rebuilds the stage
// over bounded inputs for Skip and Take, and may be nil.
func recordFrame(idx index.Index, open func() ([]string, enumerator.Enumerator[Pair]), narrowed func(skip, take int) DataFrame) *LazyDataFrame {
	cache := new(columnCache)
	start := func() stream {
		base, recs := open()
		return cache.records(base, recs)
	}
	df := newLazy(cache.columns(start), idx, start)
	df.limit = narrowed
	return df
}

// limitRows bounds df to take rows after skip. A negative take means
// unbounded.
func limitRows(df DataFrame, skip, take int) DataFrame {
	if skip > 0 {
		df = df.Skip(skip)
	}
	if take >= 0 {
		df = df.Take(take)
	}
	return df
}

// padded fills short rows with the absent marker and rejects wide ones.
func padded(raw enumerator.Enumerator[tuple], width int) enumerator.Enumerator[tuple] {
	return enumerator.MapErr(raw, func(t tuple) (tuple, error) {
		if len(t.cells) > width {
			return tuple{}, tberrors.InvalidArgument("rows",
				fmt.Sprintf("row has %d cells for %d columns", len(t.cells), width))
		}
		cells := make([]any, width)
		copy(cells, t.cells)
		return tuple{key: t.key, cells: cells}, nil
	})
}

// ============================================================================
// EAGER
// ============================================================================

// EagerDataFrame holds column-major materialized storage.
type EagerDataFrame struct {
	ops
	names []string
	idx   *index.EagerIndex
	cols  [][]any
}

func newEager(names []string, idx *index.EagerIndex, cols [][]any) *EagerDataFrame {
	df := &EagerDataFrame{names: names, idx: idx, cols: cols}
	df.ops = ops{self: df}
	return df
}

func (df *EagerDataFrame) GetColumnNames() []string { return slices.Clone(df.names) }

func (df *EagerDataFrame) columns(bool) ([]string, bool) { return df.names, true }

func (df *EagerDataFrame) GetIndex() index.Index { return df.idx }

func (df *EagerDataFrame) Count() (int, error) { return len(df.idx.Keys()), nil }

func (df *EagerDataFrame) open() stream {
	return stream{names: df.names, rows: df.tuples()}
}

func (df *EagerDataFrame) tuples() enumerator.Enumerator[tuple] {
	keys := df.idx.Keys()
	i := 0
	return enumerator.FromFunc(func() (tuple, bool, error) {
		if i >= len(keys) {
			return tuple{}, false, nil
		}
		cells := make([]any, len(df.cols))
		for c, col := range df.cols {
			cells[c] = cellAt(col, i)
		}
		t := tuple{key: keys[i], cells: cells}
		i++
		return t, true, nil
	})
}

func (df *EagerDataFrame) Bake() (DataFrame, error) { return df, nil }

// ============================================================================
// ROW HELPERS
// ============================================================================

func cellAt(cells []any, i int) any {
	if i < 0 || i >= len(cells) {
		return nil
	}
	return cells[i]
}

func rowOf(names []string, cells []any) Row {
	row := make(Row, len(names))
	for i, name := range names {
		if v := cellAt(cells, i); v != nil {
			row[name] = v
		}
	}
	return row
}

func cellsOf(names []string, row Row) []any {
	cells := make([]any, len(names))
	for i, name := range names {
		cells[i] = row[name]
	}
	return cells
}

func positionOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func nameSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// openOf starts a traversal of any DataFrame.
func openOf(df DataFrame) stream {
	if f, ok := df.(frame); ok {
		return f.open()
	}
	names := df.GetColumnNames()
	return stream{names: names, rows: enumerator.Map(df.GetEnumerator(), func(p Pair) tuple {
		return tuple{key: p.Key, cells: cellsOf(names, p.Row)}
	})}
}

// columnsOf asks any DataFrame for its column names.
func columnsOf(df DataFrame, resolve bool) ([]string, bool) {
	if f, ok := df.(frame); ok {
		return f.columns(resolve)
	}
	return df.GetColumnNames(), true
}

// project re-positions a stream's tuples onto target names. Target names
// the stream lacks become absent cells.
func (s stream) project(target []string) stream {
	pos := make([]int, len(target))
	for i, name := range target {
		pos[i] = positionOf(s.names, name)
	}
	return stream{names: target, rows: enumerator.Map(s.rows, func(t tuple) tuple {
		cells := make([]any, len(target))
		for i, p := range pos {
			cells[i] = cellAt(t.cells, p)
		}
		return tuple{key: t.key, cells: cells}
	})}
}

// pairs turns a stream into keyed records.
func (s stream) pairs() enumerator.Enumerator[Pair] {
	return enumerator.Map(s.rows, func(t tuple) Pair {
		return Pair{Key: t.key, Row: rowOf(s.names, t.cells)}
	})
}
