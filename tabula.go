// Package tabula is a lazy, index-aligned dataframe toolkit.
//
// Usage:
//
//	import "github.com/spektr-org/tabula/dataframe"
//
//	df := dataframe.MustNew(dataframe.Config{
//	    ColumnNames: []string{"Region", "Amount"},
//	    Rows:        [][]any{{"North", 10}, {"South", 20}},
//	})
//	top := df.OrderByDescending("Amount").Take(1)
//
// Frames are lazy: each transformation returns a new frame that is only
// evaluated when enumerated or baked. The format and datasource packages
// move frames in and out of text; query runs grouped aggregations; the
// translator package turns natural language questions into query specs.
// Nothing leaves the process except through datasource or translator.
package tabula

// Version is the module release reported by the CLI.
const Version = "0.3.0"
