package schema

import (
	"github.com/spektr-org/tabula/dataframe"
)

// Coerce converts the string cells of discovered columns to typed cells:
// measures become float64 and date dimensions time.Time. Temporal
// dimensions matched by a month/quarter pattern stay strings, as do
// columns cfg does not mention. Parse failures surface when the result is
// enumerated.
func Coerce(df dataframe.DataFrame, cfg *Config) dataframe.DataFrame {
	var floats, dates []string
	for _, m := range cfg.Measures {
		if !m.IsSynthetic && df.HasSeries(m.Key) {
			floats = append(floats, m.Key)
		}
	}
	for _, d := range cfg.Dimensions {
		if d.DataType == TypeDate && d.TemporalFormat == "" && df.HasSeries(d.Key) {
			dates = append(dates, d.Key)
		}
	}
	if len(floats) > 0 {
		df = df.ParseFloats(floats...)
	}
	if len(dates) > 0 {
		df = df.ParseDates(dates...)
	}
	return df
}

// Infer discovers a schema for df and coerces it in one step.
func Infer(df dataframe.DataFrame, opts ...DiscoverOptions) (dataframe.DataFrame, *Config, error) {
	cfg, err := Discover(df, opts...)
	if err != nil {
		return nil, nil, err
	}
	return Coerce(df, cfg), cfg, nil
}
