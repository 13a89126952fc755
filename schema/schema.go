package schema

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// SCHEMA — Describes the shape of a frame for the query engine + translator
// ============================================================================
// Discovered from a DataFrame or written by hand as YAML/JSON. Keys are
// the frame's column names, so a Config can drive query.Execute directly.
// ============================================================================

// Data types recorded on discovered columns.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeDate    = "date"
	TypeBoolean = "boolean"
)

// Config describes the complete shape of a dataset.
type Config struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Dimensions []DimensionMeta `json:"dimensions" yaml:"dimensions"`
	Measures   []MeasureMeta   `json:"measures" yaml:"measures"`

	Currency *CurrencyConfig `json:"currency,omitempty" yaml:"currency,omitempty"`

	DiscoveredAt string `json:"discoveredAt,omitempty" yaml:"discoveredAt,omitempty"`
	RowCount     int    `json:"rowCount,omitempty" yaml:"rowCount,omitempty"`

	SkippedColumns []SkippedColumn `json:"skippedColumns,omitempty" yaml:"skippedColumns,omitempty"`

	// Set when a model enriched the discovered draft.
	RefinedAt string `json:"refinedAt,omitempty" yaml:"refinedAt,omitempty"`
	RefinedBy string `json:"refinedBy,omitempty" yaml:"refinedBy,omitempty"`
}

// DimensionMeta describes a column used for grouping/filtering.
type DimensionMeta struct {
	Key             string   `json:"key" yaml:"key"`
	DisplayName     string   `json:"displayName" yaml:"displayName"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	DataType        string   `json:"dataType" yaml:"dataType"`
	SampleValues    []string `json:"sampleValues" yaml:"sampleValues"`
	Groupable       bool     `json:"groupable" yaml:"groupable"`
	Filterable      bool     `json:"filterable" yaml:"filterable"`
	Parent          string   `json:"parent,omitempty" yaml:"parent,omitempty"`
	IsTemporal      bool     `json:"isTemporal,omitempty" yaml:"isTemporal,omitempty"`
	TemporalFormat  string   `json:"temporalFormat,omitempty" yaml:"temporalFormat,omitempty"`
	IsCurrencyCode  bool     `json:"isCurrencyCode,omitempty" yaml:"isCurrencyCode,omitempty"`
	CardinalityHint string   `json:"cardinalityHint,omitempty" yaml:"cardinalityHint,omitempty"` // "low", "medium", "high"
	SortHint        string   `json:"sortHint,omitempty" yaml:"sortHint,omitempty"`               // "P1 > P2 > P3"
	NullCount       int      `json:"nullCount,omitempty" yaml:"nullCount,omitempty"`
}

// MeasureMeta describes a numeric column used for aggregation.
type MeasureMeta struct {
	Key                string   `json:"key" yaml:"key"`
	DisplayName        string   `json:"displayName" yaml:"displayName"`
	Description        string   `json:"description,omitempty" yaml:"description,omitempty"`
	Unit               string   `json:"unit,omitempty" yaml:"unit,omitempty"` // "currency", "units", "hours", "points", "percent"
	IsCurrency         bool     `json:"isCurrency,omitempty" yaml:"isCurrency,omitempty"`
	IsSynthetic        bool     `json:"isSynthetic,omitempty" yaml:"isSynthetic,omitempty"`
	Aggregations       []string `json:"aggregations,omitempty" yaml:"aggregations,omitempty"`
	DefaultAggregation string   `json:"defaultAggregation,omitempty" yaml:"defaultAggregation,omitempty"`
	NullCount          int      `json:"nullCount,omitempty" yaml:"nullCount,omitempty"`
}

// CurrencyConfig names the dimension holding currency codes.
type CurrencyConfig struct {
	Enabled       bool               `json:"enabled" yaml:"enabled"`
	CodeDimension string             `json:"codeDimension" yaml:"codeDimension"`
	BaseCurrency  string             `json:"baseCurrency" yaml:"baseCurrency"`
	Rates         map[string]float64 `json:"rates" yaml:"rates"`
}

// SkippedColumn records why a column was excluded during discovery.
type SkippedColumn struct {
	Column      string `json:"column" yaml:"column"`
	Reason      string `json:"reason" yaml:"reason"`
	Recoverable bool   `json:"recoverable" yaml:"recoverable"`
}

// RecordCountKey is the synthetic count measure every discovered schema has.
const RecordCountKey = "record_count"

// DefaultDimension creates a DimensionMeta with sensible defaults.
func DefaultDimension(key string, samples []string) DimensionMeta {
	return DimensionMeta{
		Key:          key,
		DisplayName:  toDisplayName(key),
		DataType:     TypeString,
		SampleValues: samples,
		Groupable:    true,
		Filterable:   true,
	}
}

// DefaultMeasure creates a MeasureMeta with sensible defaults.
func DefaultMeasure(key string) MeasureMeta {
	return MeasureMeta{
		Key:                key,
		DisplayName:        toDisplayName(key),
		Aggregations:       []string{"sum", "avg", "min", "max", "count"},
		DefaultAggregation: "sum",
	}
}

// GetDefaultMeasure returns the first non-synthetic measure's key, falling
// back to record_count.
func (c Config) GetDefaultMeasure() string {
	for _, m := range c.Measures {
		if !m.IsSynthetic {
			return m.Key
		}
	}
	return RecordCountKey
}

// DimensionKeys returns all dimension keys.
func (c Config) DimensionKeys() []string {
	keys := make([]string, len(c.Dimensions))
	for i, d := range c.Dimensions {
		keys[i] = d.Key
	}
	return keys
}

// MeasureKeys returns all measure keys.
func (c Config) MeasureKeys() []string {
	keys := make([]string, len(c.Measures))
	for i, m := range c.Measures {
		keys[i] = m.Key
	}
	return keys
}

// Dimension looks up a dimension by key.
func (c Config) Dimension(key string) (DimensionMeta, bool) {
	for _, d := range c.Dimensions {
		if d.Key == key {
			return d, true
		}
	}
	return DimensionMeta{}, false
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	dst := *c

	dst.Dimensions = make([]DimensionMeta, len(c.Dimensions))
	for i, d := range c.Dimensions {
		dst.Dimensions[i] = d
		dst.Dimensions[i].SampleValues = append([]string(nil), d.SampleValues...)
	}

	dst.Measures = make([]MeasureMeta, len(c.Measures))
	for i, m := range c.Measures {
		dst.Measures[i] = m
		dst.Measures[i].Aggregations = append([]string(nil), m.Aggregations...)
	}

	dst.SkippedColumns = append([]SkippedColumn(nil), c.SkippedColumns...)

	if c.Currency != nil {
		currency := *c.Currency
		currency.Rates = make(map[string]float64, len(c.Currency.Rates))
		for k, v := range c.Currency.Rates {
			currency.Rates[k] = v
		}
		dst.Currency = &currency
	}
	return &dst
}

// ── serialization ──

// ToYAML renders the schema as a YAML document.
func (c Config) ToYAML() ([]byte, error) { return yaml.Marshal(c) }

// ToJSON renders the schema as indented JSON.
func (c Config) ToJSON() ([]byte, error) { return json.MarshalIndent(c, "", "  ") }

// FromYAML parses a hand-written or previously discovered schema.
func FromYAML(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// FromJSON parses a schema serialized with ToJSON.
func FromJSON(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
