package format

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spektr-org/tabula/dataframe"
	tberrors "github.com/spektr-org/tabula/errors"
)

// ============================================================================
// JSON — Array of objects
// ============================================================================
// Parsing walks the token stream so column order follows first-seen key
// order instead of Go's sorted map order. Objects may have different keys;
// the column set is their union and gaps are absent.
// ============================================================================

// JSON is the array-of-objects plugin.
type JSON struct {
	// UseInts decodes integral numbers as int instead of float64.
	UseInts bool
}

// Format renders df as a 4-space indented array; "[]" when empty.
func (JSON) Format(df dataframe.DataFrame) (string, error) {
	return df.ToJSON()
}

// Parse decodes an array of flat objects. Nested values are kept as
// decoded (map[string]any or []any); null becomes absent.
func (j JSON) Parse(text string) (dataframe.DataFrame, error) {
	if strings.TrimSpace(text) == "" {
		return dataframe.Empty(), nil
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var names []string
	seen := make(map[string]bool)
	var records []dataframe.Row

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		rec := make(dataframe.Row)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, tberrors.ParseFailure("json", nil, err)
			}
			key, ok := tok.(string)
			if !ok {
				return nil, tberrors.ParseFailure("json", tok, nil)
			}
			var raw any
			if err := dec.Decode(&raw); err != nil {
				return nil, tberrors.ParseFailure(key, nil, err)
			}
			if !seen[key] {
				seen[key] = true
				names = append(names, key)
			}
			if raw != nil {
				rec[key] = j.number(raw)
			}
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, tberrors.InvalidArgument("json", "trailing data after array")
	}

	if len(records) == 0 {
		return dataframe.Empty(), nil
	}
	return dataframe.New(dataframe.Config{ColumnNames: names, Records: records})
}

// number converts json.Number leaves (including nested ones) to Go numbers.
func (j JSON) number(v any) any {
	switch t := v.(type) {
	case json.Number:
		if j.UseInts {
			if n, err := t.Int64(); err == nil {
				return int(n)
			}
		}
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = j.number(inner)
		}
	case []any:
		for i, inner := range t {
			t[i] = j.number(inner)
		}
	}
	return v
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return tberrors.ParseFailure("json", nil, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return tberrors.InvalidArgument("json", "expected "+want.String()+" (array of objects)")
	}
	return nil
}
