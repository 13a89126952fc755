package format

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spektr-org/tabula/dataframe"
	tberrors "github.com/spektr-org/tabula/errors"
)

// ============================================================================
// YAML — Sequence of mappings
// ============================================================================
// Built on yaml.Node rather than map[string]any so key order survives in
// both directions.
// ============================================================================

// YAML is the sequence-of-mappings plugin.
type YAML struct{}

// Format renders one mapping per row in column order. Absent cells are
// omitted, as in ToJSON. An empty frame renders as "[]".
func (YAML) Format(df dataframe.DataFrame) (string, error) {
	names := df.GetColumnNames()
	rows, err := df.ToRows()
	if err != nil {
		return "", err
	}

	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	if len(rows) == 0 {
		seq.Style = yaml.FlowStyle
	}
	for _, row := range rows {
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, name := range names {
			if i >= len(row) || row[i] == nil {
				continue
			}
			var v yaml.Node
			if err := v.Encode(row[i]); err != nil {
				return "", tberrors.InvalidArgument(name, err.Error())
			}
			m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}, &v)
		}
		seq.Content = append(seq.Content, m)
	}

	out, err := yaml.Marshal(seq)
	if err != nil {
		return "", tberrors.InvalidArgument("rows", err.Error())
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}

// Parse reads a top-level sequence of mappings. Scalars decode to their
// natural Go types; null becomes absent.
func (YAML) Parse(text string) (dataframe.DataFrame, error) {
	if strings.TrimSpace(text) == "" {
		return dataframe.Empty(), nil
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, tberrors.ParseFailure("yaml", nil, err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.SequenceNode {
		return nil, tberrors.InvalidArgument("yaml", "expected a sequence of mappings")
	}

	var names []string
	seen := make(map[string]bool)
	records := make([]dataframe.Row, 0, len(root.Content))
	for i, item := range root.Content {
		if item.Kind != yaml.MappingNode {
			return nil, tberrors.InvalidArgument("yaml", "item is not a mapping").WithDetail("item", i)
		}
		rec := make(dataframe.Row, len(item.Content)/2)
		for k := 0; k+1 < len(item.Content); k += 2 {
			key := item.Content[k].Value
			var v any
			if err := item.Content[k+1].Decode(&v); err != nil {
				return nil, tberrors.ParseFailure(key, item.Content[k+1].Value, err)
			}
			if !seen[key] {
				seen[key] = true
				names = append(names, key)
			}
			if v != nil {
				rec[key] = v
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return dataframe.Empty(), nil
	}
	return dataframe.New(dataframe.Config{ColumnNames: names, Records: records})
}
