package value

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// CELL VALUES — Absent marker, equality, ordering, hashing
// ============================================================================
// A cell is any Go value. nil is the absent marker and never real data.
// Numbers of different Go kinds are one class: int(5) equals float64(5).
// ============================================================================

// IsAbsent reports whether v is the absent marker.
func IsAbsent(v any) bool { return v == nil }

// ToFloat widens any Go numeric kind to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// IsNumber reports whether v is any Go numeric kind.
func IsNumber(v any) bool {
	_, ok := ToFloat(v)
	return ok
}

// Equal is value equality: numbers by magnitude, times by instant,
// everything else structurally.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, ok := ToFloat(a); ok {
		fb, ok := ToFloat(b)
		return ok && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// ── ordering ──

type class int

const (
	classAbsent class = iota
	classBool
	classNumber
	classString
	classTime
	classOther
)

func classOf(v any) class {
	switch v.(type) {
	case nil:
		return classAbsent
	case bool:
		return classBool
	case string:
		return classString
	case time.Time:
		return classTime
	}
	if IsNumber(v) {
		return classNumber
	}
	return classOther
}

// Compare orders two cells: -1, 0 or +1. Numbers compare by magnitude,
// strings lexicographically, times chronologically, false before true.
// Values of different classes get a fixed but arbitrary order.
func Compare(a, b any) int {
	ca, cb := classOf(a), classOf(b)
	if ca != cb {
		return cmpInt(int(ca), int(cb))
	}
	switch ca {
	case classAbsent:
		return 0
	case classBool:
		ba, bb := a.(bool), b.(bool)
		if ba == bb {
			return 0
		}
		if !ba {
			return -1
		}
		return 1
	case classNumber:
		fa, _ := ToFloat(a)
		fb, _ := ToFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case classString:
		return strings.Compare(a.(string), b.(string))
	case classTime:
		return a.(time.Time).Compare(b.(time.Time))
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// Less is Compare(a, b) < 0.
func Less(a, b any) bool { return Compare(a, b) < 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ── hashing ──

type timeKey int64

type opaqueKey string

// Key returns a comparable stand-in for v such that Equal(a, b) implies
// Key(a) == Key(b). Used wherever cells are looked up in Go maps.
func Key(v any) any {
	if v == nil {
		return nil
	}
	if f, ok := ToFloat(v); ok {
		return f
	}
	switch t := v.(type) {
	case string, bool:
		return t
	case time.Time:
		return timeKey(t.UnixNano())
	}
	if reflect.TypeOf(v).Comparable() {
		return v
	}
	return opaqueKey(fmt.Sprintf("%#v", v))
}

// ── type names ──

const (
	TypeNumber    = "number"
	TypeString    = "string"
	TypeDate      = "date"
	TypeBoolean   = "boolean"
	TypeArray     = "array"
	TypeObject    = "object"
	TypeUndefined = "undefined"
)

// TypeName classifies v for diagnostics.
func TypeName(v any) string {
	switch classOf(v) {
	case classAbsent:
		return TypeUndefined
	case classBool:
		return TypeBoolean
	case classNumber:
		return TypeNumber
	case classString:
		return TypeString
	case classTime:
		return TypeDate
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		return TypeArray
	}
	return TypeObject
}

// ToString renders v as display text. Absent renders as "".
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return t.String()
	}
	if f, ok := ToFloat(v); ok {
		return formatFloat(f)
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if a := math.Abs(f); a != 0 && (a >= 1e21 || a < 1e-6) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
