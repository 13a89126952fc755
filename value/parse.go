package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// PARSING — String cells to typed cells
// ============================================================================

// ErrNotParsable is wrapped by every parse failure in this file.
var ErrNotParsable = errors.New("value not parsable")

// DateLayouts are tried in order by ParseDate.
var DateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02/01/2006",
	"Jan-2006",
	"January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"2006",
}

// ParseInt converts a cell to int. Absent and blank strings yield absent.
// Fractional input is truncated toward zero.
func ParseInt(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case int:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int(f), nil
		}
	default:
		if f, ok := ToFloat(v); ok {
			return int(f), nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not an integer", ErrNotParsable, ToString(v))
}

// ParseFloat converts a cell to float64. Thousands separators and common
// currency prefixes are accepted.
func ParseFloat(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		if f, ok := parseNumeric(s); ok {
			return f, nil
		}
	default:
		if f, ok := ToFloat(v); ok {
			return f, nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not a number", ErrNotParsable, ToString(v))
}

// ParseDate converts a cell to time.Time using DateLayouts.
func ParseDate(v any) (any, error) {
	return ParseDateLayouts(v, DateLayouts...)
}

// ParseDateLayouts converts a cell to time.Time trying each layout in turn.
func ParseDateLayouts(v any, layouts ...string) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		for _, layout := range layouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %q is not a date", ErrNotParsable, ToString(v))
}

// ── string detectors ──

// IsNumeric reports whether s reads as a number, allowing "1,234.56"
// and a leading currency symbol.
func IsNumeric(s string) bool {
	_, ok := parseNumeric(s)
	return ok
}

func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimPrefix(s, "£")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// IsDate reports whether s matches any of DateLayouts.
func IsDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// IsBool reports whether s reads as a boolean flag.
func IsBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "false" || s == "yes" || s == "no" || s == "1" || s == "0"
}
