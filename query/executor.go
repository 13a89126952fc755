package query

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spektr-org/tabula/dataframe"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/logger"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// EXECUTOR — Dispatcher + Placeholder Resolution
// ============================================================================
// Entry point: Execute(spec, df, opts...)
//
// Pipeline:
//   1. Normalize the Spec and resolve the measure column
//   2. Apply filters → lazy Where
//   3. Enumerate once, group and aggregate
//   4. Build the result frame (group columns, Value, Count)
//   5. Resolve reply template placeholders
//
// This function never calls an AI service. All computation is local.
// ============================================================================

// Execute runs a Spec against a DataFrame.
//
// Options:
//   - WithDefaultMeasure(column) — sets the measure when Spec.Measure is empty
//   - WithUnit(unit) — prefixes totals in the summary
//   - WithLogger(l) — pipeline logging
func Execute(spec Spec, df dataframe.DataFrame, opts ...Option) (*Result, error) {
	cfg := applyOptions(opts)
	start := time.Now()

	spec = NormalizeSpec(spec)
	measure := resolveMeasure(spec, cfg)

	for _, col := range spec.GroupBy {
		if !df.HasSeries(col) {
			return nil, tberrors.MissingColumn("group", col)
		}
	}
	if measure != "" && !df.HasSeries(measure) {
		return nil, tberrors.MissingColumn("measure", measure)
	}

	// 1. Apply filters
	filtered, err := ApplyFilters(df, spec.Filters)
	if err != nil {
		return nil, err
	}
	rows, err := filtered.ToValues()
	if err != nil {
		return nil, err
	}

	cfg.Logger.Debug().
		Str(logger.FieldOperation, "execute").
		Int(logger.FieldRows, len(rows)).
		Str("aggregation", spec.Aggregation).
		Str("measure", measure).
		Strs("group_by", spec.GroupBy).
		Msg("rows after filtering")

	result := &Result{
		Count:   len(rows),
		Measure: measure,
		Spec:    spec,
	}

	if len(rows) == 0 {
		result.Frame = buildFrame(spec.GroupBy, nil)
		if spec.Filters.IsEmpty() {
			result.Summary = "No data available to analyze."
		} else {
			result.Summary = "No records match your query filters. Try broadening your search."
		}
		return result, nil
	}

	// 2. Group and aggregate
	groups := GroupAndAggregate(rows, spec.GroupBy, measure, spec.Aggregation, spec.SortBy, spec.Limit)

	// 3. Result frame
	result.Frame = buildFrame(spec.GroupBy, groups)
	if measure == "" {
		result.Total = float64(len(rows))
	} else {
		result.Total = SumMeasure(rows, measure)
	}

	// 4. Reply
	result.Summary = ResolvePlaceholders(spec.Reply, spec, groups, rows, measure, cfg.Unit)

	cfg.Logger.Info().
		Str(logger.FieldOperation, "execute").
		Int("groups", len(groups)).
		Int64(logger.FieldDuration, time.Since(start).Milliseconds()).
		Msg("query executed")

	return result, nil
}

// resolveMeasure picks the measure column. Empty means "count rows".
func resolveMeasure(spec Spec, cfg *config) string {
	if spec.Aggregation == AggCount && spec.Measure == "" {
		return ""
	}
	measure := spec.Measure
	if measure == "" {
		measure = cfg.DefaultMeasure
	}
	if measure == RecordCount {
		return ""
	}
	return measure
}

func buildFrame(groupBy []string, groups []Group) dataframe.DataFrame {
	names := append(append([]string{}, groupBy...), ValueColumn, CountColumn)
	rows := make([][]any, len(groups))
	for i, g := range groups {
		row := append([]any{}, g.Keys...)
		rows[i] = append(row, g.Value, g.Count)
	}
	return dataframe.MustNew(dataframe.Config{ColumnNames: names, Rows: rows})
}

// ============================================================================
// PLACEHOLDER RESOLUTION
// ============================================================================

// ResolvePlaceholders substitutes computed values into the reply template.
// An empty template yields a default one-line summary.
func ResolvePlaceholders(template string, spec Spec, groups []Group, rows []dataframe.Row, measure, unit string) string {
	if template == "" {
		return buildDefaultReply(rows, measure, unit)
	}

	count := len(rows)
	replacements := map[string]string{
		"{count}":   FormatInt(count),
		"{groups}":  FormatInt(len(groups)),
		"{filters}": filterLabel(spec.Filters),
		"{measure}": measure,
		"{unit}":    unit,
	}

	if measure != "" {
		vals := measureValues(rows, measure)
		total := SumMeasure(rows, measure)
		replacements["{total}"] = FormatAmount(total, unit)
		if avg, ok := avgOrAbsent(vals).(float64); ok {
			replacements["{avg}"] = FormatAmount(avg, unit)
		}
		if m, ok := extremeOrAbsent(vals, 1).(float64); ok {
			replacements["{max}"] = FormatAmount(m, unit)
		}
		if m, ok := extremeOrAbsent(vals, -1).(float64); ok {
			replacements["{min}"] = FormatAmount(m, unit)
		}
	} else {
		replacements["{total}"] = FormatInt(count)
	}

	// Top group (highest value)
	if top, ok := topGroup(groups); ok {
		replacements["{top_group}"] = top.Label
		replacements["{top_value}"] = formatGroupValue(top.Value, unit)
	}

	result := template
	for placeholder, v := range replacements {
		result = strings.ReplaceAll(result, placeholder, v)
	}

	// Safety net: strip unresolved placeholders
	return stripUnresolvedPlaceholders(result)
}

func topGroup(groups []Group) (Group, bool) {
	found := false
	var top Group
	for _, g := range groups {
		if g.Value == nil {
			continue
		}
		if !found || value.Compare(g.Value, top.Value) > 0 {
			top, found = g, true
		}
	}
	return top, found
}

func formatGroupValue(v any, unit string) string {
	switch n := v.(type) {
	case int:
		return FormatInt(n)
	case float64:
		return FormatAmount(n, unit)
	}
	return ""
}

func buildDefaultReply(rows []dataframe.Row, measure, unit string) string {
	if len(rows) == 0 {
		return "No matching records found."
	}
	if measure == "" {
		return fmt.Sprintf("Found %s records.", FormatInt(len(rows)))
	}
	return fmt.Sprintf("Found %s records totalling %s.",
		FormatInt(len(rows)), FormatAmount(SumMeasure(rows, measure), unit))
}

var placeholderRegex = regexp.MustCompile(`\{[a-z_]+\}`)

func stripUnresolvedPlaceholders(text string) string {
	cleaned := placeholderRegex.ReplaceAllString(text, "")
	cleaned = strings.ReplaceAll(cleaned, "  ", " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimRight(cleaned, " .—-–")
	if cleaned == "" {
		return text
	}
	return cleaned
}

// ============================================================================
// SPEC NORMALIZATION
// ============================================================================

var aggregationAliases = map[string]string{
	"":        AggSum,
	"total":   AggSum,
	"average": AggAvg,
	"mean":    AggAvg,
	"list":    AggNone,
	"maximum": AggMax,
	"minimum": AggMin,
}

var sortAliases = map[string]string{
	"amount_desc":           SortValueDesc,
	"amount_asc":            SortValueAsc,
	"alpha_asc":             SortLabelAsc,
	"alpha_desc":            SortLabelDesc,
	"date_asc":              SortLabelAsc,
	"date_desc":             SortLabelDesc,
	"chronological":         SortLabelAsc,
	"reverse_chronological": SortLabelDesc,
}

// NormalizeSpec applies deterministic rules to fix common AI inconsistencies.
// The input is not modified.
func NormalizeSpec(spec Spec) Spec {
	// Rule 1: canonical aggregation names
	agg := strings.ToLower(strings.TrimSpace(spec.Aggregation))
	if alias, ok := aggregationAliases[agg]; ok {
		agg = alias
	}
	switch agg {
	case AggSum, AggCount, AggAvg, AggMin, AggMax, AggNone:
	default:
		agg = AggSum
	}

	// Rule 2: the synthetic measure always counts
	if spec.Measure == RecordCount && agg != AggNone {
		agg = AggCount
	}
	spec.Aggregation = agg

	// Rule 3: canonical sort names
	sortBy := strings.ToLower(strings.TrimSpace(spec.SortBy))
	if alias, ok := sortAliases[sortBy]; ok {
		sortBy = alias
	}
	spec.SortBy = sortBy

	// Rule 4: no negative limits
	if spec.Limit < 0 {
		spec.Limit = 0
	}

	// Rule 5: unique, non-blank group columns
	seen := make(map[string]bool, len(spec.GroupBy))
	groupBy := make([]string, 0, len(spec.GroupBy))
	for _, col := range spec.GroupBy {
		if col = strings.TrimSpace(col); col != "" && !seen[col] {
			seen[col] = true
			groupBy = append(groupBy, col)
		}
	}
	spec.GroupBy = groupBy

	// Rule 6: drop empty filters
	if len(spec.Filters.Columns) > 0 {
		cols := make(map[string][]string, len(spec.Filters.Columns))
		for col, vals := range spec.Filters.Columns {
			if len(vals) > 0 {
				cols[col] = append([]string{}, vals...)
			}
		}
		spec.Filters.Columns = cols
	}
	return spec
}
