package format

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/spektr-org/tabula/dataframe"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// ARROW — Columnar records and the IPC stream format
// ============================================================================
// Frames carry untyped cells, so each column's Arrow type is inferred from
// its present values:
//
//	all integers        → int64
//	all numbers         → float64
//	all bools           → bool
//	all time.Time       → timestamp[ms, UTC]
//	anything else       → utf8 (value.ToString)
//
// Absent cells are nulls. The index is not carried; parsed frames get the
// default 0..n-1 index.
// ============================================================================

// Arrow is the IPC stream plugin. The "text" it produces is the raw
// stream bytes.
type Arrow struct {
	// Allocator defaults to memory.NewGoAllocator().
	Allocator memory.Allocator
}

func (a Arrow) mem() memory.Allocator {
	if a.Allocator == nil {
		return memory.NewGoAllocator()
	}
	return a.Allocator
}

// Format writes df as a single-batch IPC stream.
func (a Arrow) Format(df dataframe.DataFrame) (string, error) {
	mem := a.mem()
	rec, err := ToRecord(df, mem)
	if err != nil {
		return "", err
	}
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := w.Write(rec); err != nil {
		w.Close()
		return "", tberrors.IOFailure("arrow write", err)
	}
	if err := w.Close(); err != nil {
		return "", tberrors.IOFailure("arrow write", err)
	}
	return buf.String(), nil
}

// Parse reads every batch of an IPC stream into one eager frame.
func (a Arrow) Parse(text string) (dataframe.DataFrame, error) {
	if text == "" {
		return dataframe.Empty(), nil
	}
	r, err := ipc.NewReader(strings.NewReader(text), ipc.WithAllocator(a.mem()))
	if err != nil {
		return nil, tberrors.ParseFailure("arrow", nil, err)
	}
	defer r.Release()

	names := fieldNames(r.Schema())
	var rows [][]any
	for r.Next() {
		rows = append(rows, recordRows(r.Record())...)
	}
	if err := r.Err(); err != nil {
		return nil, tberrors.ParseFailure("arrow", nil, err)
	}
	if len(names) == 0 {
		return dataframe.Empty(), nil
	}
	return dataframe.New(dataframe.Config{ColumnNames: names, Rows: rows})
}

// ============================================================================
// RECORD CONVERSION
// ============================================================================

// ToRecord materializes df into a single Arrow record. The caller owns
// the record and must Release it.
func ToRecord(df dataframe.DataFrame, mem memory.Allocator) (arrow.Record, error) {
	names := df.GetColumnNames()
	rows, err := df.ToRows()
	if err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: inferArrowType(rows, i), Nullable: true}
	}
	sch := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, sch)
	defer b.Release()

	for i := range names {
		fb := b.Field(i)
		for _, row := range rows {
			var cell any
			if i < len(row) {
				cell = row[i]
			}
			if err := appendCell(fb, cell); err != nil {
				return nil, tberrors.ParseFailure(names[i], cell, err)
			}
		}
	}
	return b.NewRecord(), nil
}

// FromRecord converts an Arrow record into an eager frame.
func FromRecord(rec arrow.Record) (dataframe.DataFrame, error) {
	names := fieldNames(rec.Schema())
	if len(names) == 0 {
		return dataframe.Empty(), nil
	}
	return dataframe.New(dataframe.Config{ColumnNames: names, Rows: recordRows(rec)})
}

func fieldNames(sch *arrow.Schema) []string {
	names := make([]string, sch.NumFields())
	for i, f := range sch.Fields() {
		names[i] = f.Name
	}
	return names
}

func recordRows(rec arrow.Record) [][]any {
	nrows, ncols := int(rec.NumRows()), int(rec.NumCols())
	rows := make([][]any, nrows)
	for r := range rows {
		rows[r] = make([]any, ncols)
	}
	for c := 0; c < ncols; c++ {
		col := rec.Column(c)
		for r := 0; r < nrows; r++ {
			rows[r][c] = cellOf(col, r)
		}
	}
	return rows
}

// ── Type inference ──────────────────────────────────────────────────────

func inferArrowType(rows [][]any, col int) arrow.DataType {
	allInt, allNum, allBool, allTime := true, true, true, true
	present := 0
	for _, row := range rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		present++
		switch v := row[col].(type) {
		case int, int8, int16, int32, int64, uint8, uint16, uint32:
			allBool, allTime = false, false
		case bool:
			allInt, allNum, allTime = false, false, false
		case time.Time:
			allInt, allNum, allBool = false, false, false
		default:
			allInt, allBool, allTime = false, false, false
			if !value.IsNumber(v) {
				allNum = false
			}
		}
	}
	switch {
	case present == 0:
		return arrow.BinaryTypes.String
	case allInt:
		return arrow.PrimitiveTypes.Int64
	case allNum:
		return arrow.PrimitiveTypes.Float64
	case allBool:
		return arrow.FixedWidthTypes.Boolean
	case allTime:
		return &arrow.TimestampType{Unit: arrow.Millisecond, TimeZone: "UTC"}
	}
	return arrow.BinaryTypes.String
}

func appendCell(b array.Builder, cell any) error {
	if cell == nil {
		b.AppendNull()
		return nil
	}
	switch fb := b.(type) {
	case *array.Int64Builder:
		fb.Append(toInt64(cell))
	case *array.Float64Builder:
		f, _ := value.ToFloat(cell)
		fb.Append(f)
	case *array.BooleanBuilder:
		fb.Append(cell.(bool))
	case *array.TimestampBuilder:
		fb.Append(arrow.Timestamp(cell.(time.Time).UnixMilli()))
	case *array.StringBuilder:
		fb.Append(value.ToString(cell))
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	}
	return 0
}

// ── Cell extraction ─────────────────────────────────────────────────────

// cellOf reads one typed value. Signed and small unsigned integers come
// back as int, floats as float64, timestamps and dates as UTC time.Time.
func cellOf(col arrow.Array, pos int) any {
	if col.IsNull(pos) {
		return nil
	}

	switch col.DataType().ID() {
	case arrow.STRING:
		return col.(*array.String).Value(pos)
	case arrow.LARGE_STRING:
		return col.(*array.LargeString).Value(pos)
	case arrow.BINARY:
		return string(col.(*array.Binary).Value(pos))
	case arrow.BOOL:
		return col.(*array.Boolean).Value(pos)
	case arrow.INT8:
		return int(col.(*array.Int8).Value(pos))
	case arrow.INT16:
		return int(col.(*array.Int16).Value(pos))
	case arrow.INT32:
		return int(col.(*array.Int32).Value(pos))
	case arrow.INT64:
		return int(col.(*array.Int64).Value(pos))
	case arrow.UINT8:
		return int(col.(*array.Uint8).Value(pos))
	case arrow.UINT16:
		return int(col.(*array.Uint16).Value(pos))
	case arrow.UINT32:
		return int(col.(*array.Uint32).Value(pos))
	case arrow.UINT64:
		return col.(*array.Uint64).Value(pos)
	case arrow.FLOAT16:
		return float64(col.(*array.Float16).Value(pos).Float32())
	case arrow.FLOAT32:
		return float64(col.(*array.Float32).Value(pos))
	case arrow.FLOAT64:
		return col.(*array.Float64).Value(pos)
	case arrow.DATE32:
		return col.(*array.Date32).Value(pos).ToTime().UTC()
	case arrow.DATE64:
		return col.(*array.Date64).Value(pos).ToTime().UTC()
	case arrow.TIMESTAMP:
		unit := col.DataType().(*arrow.TimestampType).Unit
		return col.(*array.Timestamp).Value(pos).ToTime(unit).UTC()
	default:
		return col.ValueStr(pos)
	}
}
