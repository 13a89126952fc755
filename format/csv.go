package format

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/spektr-org/tabula/dataframe"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/schema"
)

// ============================================================================
// CSV — Delimited text with a header row
// ============================================================================
// Cells parse as strings; empty cells become absent, mirroring ToCSV which
// writes absent as "". InferTypes runs schema discovery and coerces
// numeric and date columns after parsing.
// ============================================================================

// CSV is the delimited-text plugin. The zero value is comma separated.
type CSV struct {
	Comma      rune
	InferTypes bool
}

func (c CSV) comma() rune {
	if c.Comma == 0 {
		return ','
	}
	return c.Comma
}

// Format renders df with a header line and CRLF row separators.
func (c CSV) Format(df dataframe.DataFrame) (string, error) {
	if c.comma() == ',' {
		return df.ToCSV()
	}
	return dataframe.ToDelimited(df, c.comma())
}

// Parse reads a header row then data rows. Short rows leave trailing
// cells absent; long rows are rejected.
func (c CSV) Parse(text string) (dataframe.DataFrame, error) {
	if strings.TrimSpace(text) == "" {
		return dataframe.Empty(), nil
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = c.comma()
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, tberrors.ParseFailure("header", nil, err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows [][]any
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, tberrors.ParseFailure("row", line, err)
		}
		if len(record) > len(names) {
			return nil, tberrors.InvalidArgument("row", "line has more fields than the header").
				WithDetail("line", line)
		}
		row := make([]any, len(names))
		for i, cell := range record {
			if cell != "" {
				row[i] = cell
			}
		}
		rows = append(rows, row)
	}

	df, err := dataframe.New(dataframe.Config{ColumnNames: names, Rows: rows})
	if err != nil {
		return nil, err
	}
	if !c.InferTypes || len(rows) == 0 {
		return df, nil
	}
	typed, _, err := schema.Infer(df)
	if err != nil {
		return nil, err
	}
	return typed.Bake()
}
