package dataframe

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"

	"github.com/spektr-org/tabula/enumerator"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/series"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// READ ACCESSORS — Columns, rows and serialization
// ============================================================================

// ops holds every algorithm shared by both variants. Each one talks to
// the receiver through the frame interface only.
type ops struct {
	self frame
}

func (o ops) GetColumnIndex(name string) int {
	return positionOf(o.self.GetColumnNames(), name)
}

func (o ops) HasSeries(name string) bool {
	return o.GetColumnIndex(name) >= 0
}

func (o ops) GetSeries(name string) series.Series {
	src := o.self
	return series.FromPairs(name, func() enumerator.Enumerator[series.Pair] {
		if ns, ok := src.columns(false); ok && positionOf(ns, name) < 0 {
			return enumerator.Empty[series.Pair]()
		}
		s := src.open()
		pos := positionOf(s.names, name)
		if pos < 0 {
			return enumerator.Empty[series.Pair]()
		}
		present := enumerator.Filter(s.rows, func(t tuple) bool {
			return !value.IsAbsent(cellAt(t.cells, pos))
		})
		return enumerator.Map(present, func(t tuple) series.Pair {
			return series.Pair{Key: t.key, Value: t.cells[pos]}
		})
	})
}

func (o ops) ExpectSeries(name string) (series.Series, error) {
	if !o.HasSeries(name) {
		return nil, tberrors.MissingColumn("expectSeries", name).
			WithDetail("available", o.self.GetColumnNames())
	}
	return o.GetSeries(name), nil
}

func (o ops) GetColumns() []Column {
	names := o.self.GetColumnNames()
	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name, Series: o.GetSeries(name)}
	}
	return cols
}

func (o ops) GetEnumerator() enumerator.Enumerator[Pair] {
	return o.self.open().pairs()
}

func (o ops) ToPairs() ([]Pair, error) {
	return enumerator.ToSlice(o.GetEnumerator())
}

func (o ops) ToValues() ([]Row, error) {
	return enumerator.ToSlice(enumerator.Map(o.GetEnumerator(), func(p Pair) Row { return p.Row }))
}

// ToRows returns each row's cells in column order; absent cells are nil.
func (o ops) ToRows() ([][]any, error) {
	s := o.self.open()
	width := len(s.names)
	return enumerator.ToSlice(enumerator.Map(s.rows, func(t tuple) []any {
		cells := make([]any, width)
		copy(cells, t.cells)
		return cells
	}))
}

func (o ops) Count() (int, error) {
	return enumerator.Count(o.self.open().rows)
}

func (o ops) First() (Pair, bool, error) {
	return enumerator.First(o.GetEnumerator())
}

// ToObject folds the rows into a map. Later rows overwrite earlier ones
// on duplicate keys; keyFn must return comparable values.
func (o ops) ToObject(keyFn, valueFn RowSelector) (map[any]any, error) {
	out := make(map[any]any)
	e := o.GetEnumerator()
	for e.MoveNext() {
		p := e.Current()
		out[keyFn(p.Row, p.Key)] = valueFn(p.Row, p.Key)
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Contains reports whether some row equals row on every field they
// share. Fields of row that are not columns of the frame are ignored; a
// column the row does hold must match exactly, absent cells included.
func (o ops) Contains(row Row) (bool, error) {
	s := o.self.open()
	type field struct {
		pos int
		v   any
	}
	shared := make([]field, 0, len(row))
	for k, v := range row {
		if p := positionOf(s.names, k); p >= 0 {
			shared = append(shared, field{pos: p, v: v})
		}
	}
	e := s.rows
	for e.MoveNext() {
		t := e.Current()
		match := true
		for _, f := range shared {
			if !value.Equal(cellAt(t.cells, f.pos), f.v) {
				match = false
				break
			}
		}
		if match {
			return true, nil
		}
	}
	return false, e.Err()
}

// ── serialization ──

// orderedRow marshals a row's fields in column order.
type orderedRow struct {
	names []string
	cells []any
}

func (r orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for i, name := range r.names {
		v := cellAt(r.cells, i)
		if value.IsAbsent(v) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToJSON renders an array of one object per row, keys in column order,
// indented by four spaces. Absent cells are omitted.
func (o ops) ToJSON() (string, error) {
	s := o.self.open()
	rows, err := enumerator.ToSlice(enumerator.Map(s.rows, func(t tuple) orderedRow {
		return orderedRow{names: s.names, cells: t.cells}
	}))
	if err != nil {
		return "", err
	}
	b, err := json.MarshalIndent(rows, "", "    ")
	if err != nil {
		return "", tberrors.InvalidArgument("rows", err.Error())
	}
	return string(b), nil
}

// ToCSV renders a header line then one line per row, CRLF separated with
// no trailing terminator. A frame without rows renders as "".
func (o ops) ToCSV() (string, error) {
	return o.toDelimited(',')
}

func (o ops) toDelimited(comma rune) (string, error) {
	s := o.self.open()
	names := s.names
	rows, err := enumerator.ToSlice(s.rows)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma
	w.UseCRLF = true
	if len(names) > 0 {
		if err := w.Write(names); err != nil {
			return "", err
		}
	}
	record := make([]string, len(names))
	for _, row := range rows {
		for i := range record {
			record[i] = value.ToString(cellAt(row.cells, i))
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\r\n"), nil
}

// ToDelimited is ToCSV with a custom field separator.
func ToDelimited(df DataFrame, comma rune) (string, error) {
	if f, ok := df.(frame); ok {
		return ops{self: f}.toDelimited(comma)
	}
	return df.ToCSV()
}
