package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/spektr-org/tabula/dataframe"
	tberrors "github.com/spektr-org/tabula/errors"
	"github.com/spektr-org/tabula/value"
)

// ============================================================================
// AUTO-DISCOVERY — Heuristic column classification
// ============================================================================
// Inspects a sample of a frame and generates a schema.Config.
//
// Classification pipeline per column:
//   1. Sample values → detect type (numeric, date, bool, string)
//   2. Type + cardinality → classify role (dimension, measure, skip)
//   3. Pattern matching → detect special types (currency, temporal)
//   4. Hierarchies between dimensions
//   5. Synthetic measure (record_count)
//
// Native Go cells (numbers, time.Time, bool) classify directly; string
// cells go through the value package's parsers with an 80% threshold.
// ============================================================================

// DiscoverOptions controls discovery behavior.
type DiscoverOptions struct {
	SampleSize     int      // Max rows to inspect (0 = all). Default: 1000
	RecoverColumns []string // Force-include columns that were auto-skipped
	Name           string   // Dataset name override
}

// DefaultDiscoverOptions returns sensible defaults.
func DefaultDiscoverOptions() DiscoverOptions {
	return DiscoverOptions{SampleSize: 1000}
}

// Discover generates a schema.Config by inspecting df. It fails with
// INVALID_ARGUMENT when df has no columns or no rows.
func Discover(df dataframe.DataFrame, opts ...DiscoverOptions) (*Config, error) {
	opt := DefaultDiscoverOptions()
	if len(opts) > 0 {
		opt = opts[0]
	}

	headers := df.GetColumnNames()
	if len(headers) == 0 {
		return nil, tberrors.InvalidArgument("df", "frame has no columns")
	}

	sample := df.RemapColumns(headers)
	if opt.SampleSize > 0 {
		sample = sample.Take(opt.SampleSize)
	}
	rows, err := sample.ToRows()
	if err != nil {
		return nil, err
	}
	totalRows := len(rows)
	if totalRows == 0 {
		return nil, tberrors.InvalidArgument("df", "frame has no rows")
	}

	columns := make([]columnAnalysis, len(headers))
	for i, header := range headers {
		columns[i] = analyzeColumn(header, i, rows, totalRows)
	}

	recoverSet := make(map[string]bool)
	for _, col := range opt.RecoverColumns {
		recoverSet[strings.ToLower(col)] = true
	}

	config := &Config{
		Name:     opt.Name,
		Version:  "1.0",
		RowCount: totalRows,
	}
	if config.Name == "" {
		config.Name = "Auto-discovered Dataset"
	}

	var dimensions []DimensionMeta
	var measures []MeasureMeta
	var skipped []SkippedColumn

	for _, col := range columns {
		switch col.role {
		case roleDimension:
			dimensions = append(dimensions, col.toDimension())

		case roleMeasure:
			measures = append(measures, col.toMeasure())

		case roleSkipped:
			if recoverSet[strings.ToLower(col.header)] {
				dimensions = append(dimensions, col.toDimension())
			} else {
				skipped = append(skipped, SkippedColumn{
					Column:      col.header,
					Reason:      col.skipReason,
					Recoverable: col.recoverable,
				})
			}
		}
	}

	measures = append(measures, MeasureMeta{
		Key:                RecordCountKey,
		DisplayName:        "Record Count",
		Description:        "Number of records (auto-generated)",
		IsSynthetic:        true,
		Aggregations:       []string{"count"},
		DefaultAggregation: "count",
	})

	detectHierarchies(dimensions, rows, columns)

	config.Dimensions = dimensions
	config.Measures = measures
	config.SkippedColumns = skipped
	config.Currency = detectCurrencyConfig(dimensions)
	config.DiscoveredAt = time.Now().UTC().Format(time.RFC3339)

	return config, nil
}

// ============================================================================
// COLUMN ANALYSIS
// ============================================================================

type columnRole int

const (
	roleDimension columnRole = iota
	roleMeasure
	roleSkipped
)

type columnAnalysis struct {
	header      string
	index       int
	dataType    string
	role        columnRole
	skipReason  string
	recoverable bool

	uniqueCount int
	nullCount   int
	sampleVals  []string

	isTemporal      bool
	temporalFormat  string
	isCurrencyCode  bool
	hasDecimals     bool
	cardinalityHint string
}

// cellText renders a cell for uniqueness and pattern checks. Blank and
// null-like strings count as missing.
func cellText(v any) (string, bool) {
	if value.IsAbsent(v) {
		return "", false
	}
	s := strings.TrimSpace(value.ToString(v))
	switch s {
	case "", "null", "NULL", "N/A", "n/a":
		return "", false
	}
	return s, true
}

// analyzeColumn inspects all values in a column and classifies it.
func analyzeColumn(header string, index int, rows [][]any, totalRows int) columnAnalysis {
	col := columnAnalysis{header: header, index: index}

	cells := make([]any, 0, len(rows))
	texts := make([]string, 0, len(rows))
	uniqueSet := make(map[string]bool)

	for _, row := range rows {
		var v any
		if index < len(row) {
			v = row[index]
		}
		s, ok := cellText(v)
		if !ok {
			col.nullCount++
			continue
		}
		cells = append(cells, v)
		texts = append(texts, s)
		uniqueSet[s] = true
	}
	col.uniqueCount = len(uniqueSet)

	if len(cells) == 0 {
		col.role = roleSkipped
		col.skipReason = "All values are empty/null"
		return col
	}

	col.sampleVals = collectSamples(uniqueSet, 10)
	col.dataType = detectType(cells)

	if col.dataType == TypeNumber {
		for i, v := range cells {
			if f, ok := value.ToFloat(v); ok && f != float64(int64(f)) {
				col.hasDecimals = true
				break
			}
			if _, isString := v.(string); isString && strings.Contains(texts[i], ".") {
				col.hasDecimals = true
				break
			}
		}
	}

	switch col.dataType {
	case TypeString:
		col.isCurrencyCode = detectCurrencyCodes(col.sampleVals)
		col.isTemporal, col.temporalFormat = detectTemporalPattern(col.sampleVals)
	case TypeDate:
		col.isTemporal = true
		_, col.temporalFormat = detectTemporalPattern(col.sampleVals)
	}

	col.classifyRole(totalRows)

	switch {
	case col.uniqueCount <= 10:
		col.cardinalityHint = "low"
	case col.uniqueCount <= 100:
		col.cardinalityHint = "medium"
	default:
		col.cardinalityHint = "high"
	}

	return col
}

// classifyRole determines dimension vs measure vs skip.
func (col *columnAnalysis) classifyRole(totalRows int) {
	switch col.dataType {

	case TypeNumber:
		if col.uniqueCount == totalRows && totalRows > 10 && !col.hasDecimals {
			col.role = roleSkipped
			col.skipReason = "Unique per row — likely an ID column"
			return
		}
		if col.hasDecimals {
			col.role = roleMeasure
			return
		}
		// Few unique values at a low ratio → coded dimension (e.g. priority 1-5)
		uniqueRatio := float64(col.uniqueCount) / float64(totalRows)
		if col.uniqueCount < 20 && uniqueRatio < 0.3 {
			col.role = roleDimension
			return
		}
		col.role = roleMeasure

	case TypeDate:
		col.role = roleDimension
		col.isTemporal = true

	case TypeBoolean:
		col.role = roleDimension

	default:
		if col.uniqueCount == totalRows && totalRows > 10 {
			col.role = roleSkipped
			col.skipReason = "Unique per row — likely an identifier"
			return
		}
		if col.uniqueCount > totalRows/2 && col.uniqueCount > 50 {
			col.role = roleSkipped
			col.skipReason = fmt.Sprintf("High cardinality (%d unique values) — not useful for grouping", col.uniqueCount)
			col.recoverable = true
			return
		}
		col.role = roleDimension
	}
}

// ============================================================================
// TYPE DETECTION
// ============================================================================

// detectType requires 80%+ of non-null values to match for
// number/date/boolean. Booleans win over dates, dates over numbers.
func detectType(cells []any) string {
	numCount, dateCount, boolCount := 0, 0, 0

	for _, v := range cells {
		switch t := v.(type) {
		case bool:
			boolCount++
		case time.Time:
			dateCount++
		case string:
			if value.IsNumeric(t) {
				numCount++
			}
			if value.IsDate(t) {
				dateCount++
			}
			if value.IsBool(t) {
				boolCount++
			}
		default:
			if value.IsNumber(v) {
				numCount++
			}
		}
	}

	threshold := int(float64(len(cells)) * 0.8)

	if boolCount >= threshold {
		return TypeBoolean
	}
	if dateCount >= threshold {
		return TypeDate
	}
	if numCount >= threshold {
		return TypeNumber
	}
	return TypeString
}

// ============================================================================
// SPECIAL PATTERN DETECTION
// ============================================================================

// Known ISO 4217 currency codes (common subset).
var knownCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CNY": true,
	"INR": true, "SGD": true, "AUD": true, "CAD": true, "CHF": true,
	"HKD": true, "NZD": true, "SEK": true, "KRW": true, "NOK": true,
	"MXN": true, "BRL": true, "ZAR": true, "THB": true, "MYR": true,
	"IDR": true, "PHP": true, "VND": true, "TWD": true, "AED": true,
	"SAR": true, "QAR": true, "PLN": true, "CZK": true, "ILS": true,
	"DKK": true, "RUB": true, "TRY": true, "ARS": true, "CLP": true,
	"COP": true, "PEN": true, "EGP": true, "NGN": true, "KES": true,
	"PKR": true, "BDT": true, "LKR": true, "MMK": true, "NPR": true,
}

// detectCurrencyCodes checks if sample values are ISO currency codes.
func detectCurrencyCodes(samples []string) bool {
	if len(samples) == 0 {
		return false
	}
	matches := 0
	for _, s := range samples {
		if len(s) == 3 && knownCurrencies[s] {
			matches++
		}
	}
	return matches > 0 && float64(matches)/float64(len(samples)) >= 0.8
}

var monthPatterns = []struct {
	re     *regexp.Regexp
	format string
}{
	{regexp.MustCompile(`^[A-Z][a-z]{2}-\d{4}$`), "MMM-yyyy"}, // Jan-2026
	{regexp.MustCompile(`^\d{4}-\d{2}$`), "yyyy-MM"},          // 2026-01
	{regexp.MustCompile(`^Q[1-4]-\d{4}$`), "QN-yyyy"},         // Q1-2026
	{regexp.MustCompile(`^Q[1-4]\s+\d{4}$`), "QN yyyy"},       // Q1 2026
	{regexp.MustCompile(`^\d{4}$`), "yyyy"},                   // 2026
	{regexp.MustCompile(`^[A-Z][a-z]+ \d{4}$`), "MMMM yyyy"},  // January 2026
}

// detectTemporalPattern checks if values match known month/quarter patterns.
func detectTemporalPattern(samples []string) (bool, string) {
	if len(samples) == 0 {
		return false, ""
	}
	for _, pattern := range monthPatterns {
		matches := 0
		for _, s := range samples {
			if pattern.re.MatchString(s) {
				matches++
			}
		}
		if float64(matches)/float64(len(samples)) >= 0.8 {
			return true, pattern.format
		}
	}
	return false, ""
}

// unitFor guesses a measure's unit from its column name.
func unitFor(header string) (unit, defaultAgg string) {
	h := strings.ToLower(header)
	switch {
	case strings.Contains(h, "hour"):
		return "hours", "sum"
	case strings.Contains(h, "point") || strings.Contains(h, "score"):
		return "points", "avg"
	case strings.Contains(h, "percent") || strings.Contains(h, "%") || strings.Contains(h, "rate"):
		return "percent", "avg"
	case strings.Contains(h, "amount") || strings.Contains(h, "price") || strings.Contains(h, "revenue") ||
		strings.Contains(h, "cost") || strings.Contains(h, "salary"):
		return "currency", "sum"
	case strings.Contains(h, "quantity") || strings.Contains(h, "qty") || strings.Contains(h, "count"):
		return "units", "sum"
	}
	return "", "sum"
}

// ============================================================================
// HIERARCHY DETECTION
// ============================================================================

// detectHierarchies finds parent/child relationships between dimensions.
// If every value of dimension B maps to exactly one value of dimension A,
// and A has fewer unique values, then A is parent of B. Among valid
// parents the closest (highest cardinality) wins.
func detectHierarchies(dimensions []DimensionMeta, rows [][]any, columns []columnAnalysis) {
	dimIndices := make(map[string]int)
	dimUniques := make(map[string]int)
	for _, col := range columns {
		if col.role == roleDimension {
			dimIndices[col.header] = col.index
			dimUniques[col.header] = col.uniqueCount
		}
	}

	text := func(row []any, i int) string {
		if i >= len(row) {
			return ""
		}
		s, _ := cellText(row[i])
		return s
	}

	for i := range dimensions {
		childKey := dimensions[i].Key
		childIdx, ok := dimIndices[childKey]
		if !ok {
			continue
		}

		bestParent := ""
		bestParentUniques := 0

		for j := range dimensions {
			if i == j {
				continue
			}
			parentKey := dimensions[j].Key
			parentIdx, ok := dimIndices[parentKey]
			if !ok || dimUniques[parentKey] >= dimUniques[childKey] {
				continue
			}

			childToParent := make(map[string]string)
			isHierarchy := true
			for _, row := range rows {
				child, parent := text(row, childIdx), text(row, parentIdx)
				if child == "" || parent == "" {
					continue
				}
				if existing, ok := childToParent[child]; ok {
					if existing != parent {
						isHierarchy = false
						break
					}
				} else {
					childToParent[child] = parent
				}
			}

			if isHierarchy && len(childToParent) > 1 && dimUniques[parentKey] > bestParentUniques {
				bestParent = parentKey
				bestParentUniques = dimUniques[parentKey]
			}
		}

		dimensions[i].Parent = bestParent
	}
}

// ============================================================================
// CURRENCY CONFIG DETECTION
// ============================================================================

// detectCurrencyConfig enables currency handling when a dimension holds
// currency codes. The first sample becomes the base currency.
func detectCurrencyConfig(dimensions []DimensionMeta) *CurrencyConfig {
	for _, d := range dimensions {
		if d.IsCurrencyCode {
			base := ""
			if len(d.SampleValues) > 0 {
				base = d.SampleValues[0]
			}
			return &CurrencyConfig{
				Enabled:       true,
				CodeDimension: d.Key,
				BaseCurrency:  base,
				Rates:         map[string]float64{},
			}
		}
	}
	return nil
}

// ============================================================================
// CONVERSION HELPERS
// ============================================================================

func (col *columnAnalysis) toDimension() DimensionMeta {
	dataType := col.dataType
	if dataType == "" {
		dataType = TypeString
	}
	return DimensionMeta{
		Key:             col.header,
		DisplayName:     toDisplayName(col.header),
		DataType:        dataType,
		SampleValues:    col.sampleVals,
		Groupable:       true,
		Filterable:      true,
		IsTemporal:      col.isTemporal,
		TemporalFormat:  col.temporalFormat,
		IsCurrencyCode:  col.isCurrencyCode,
		CardinalityHint: col.cardinalityHint,
		NullCount:       col.nullCount,
	}
}

func (col *columnAnalysis) toMeasure() MeasureMeta {
	unit, agg := unitFor(col.header)
	return MeasureMeta{
		Key:                col.header,
		DisplayName:        toDisplayName(col.header),
		Unit:               unit,
		IsCurrency:         unit == "currency",
		Aggregations:       []string{"sum", "avg", "min", "max", "count"},
		DefaultAggregation: agg,
		NullCount:          col.nullCount,
	}
}

// ============================================================================
// STRING UTILITIES
// ============================================================================

// toDisplayName cleans a header for human display.
// "story_points" → "Story Points", "assigneeName" → "Assignee Name"
func toDisplayName(s string) string {
	if strings.Contains(s, " ") {
		return strings.TrimSpace(s)
	}

	var spaced strings.Builder
	prev := rune(0)
	for _, r := range s {
		if unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
			spaced.WriteRune(' ')
		}
		spaced.WriteRune(r)
		prev = r
	}
	s = strings.NewReplacer("_", " ", "-", " ").Replace(spaced.String())

	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// collectSamples picks up to maxSamples values in sorted order.
func collectSamples(uniqueSet map[string]bool, maxSamples int) []string {
	samples := make([]string, 0, len(uniqueSet))
	for v := range uniqueSet {
		samples = append(samples, v)
	}
	sort.Strings(samples)
	if len(samples) > maxSamples {
		samples = samples[:maxSamples]
	}
	return samples
}
