package value

import (
	"errors"
	"testing"
	"time"
)

func TestEqualAcrossNumericKinds(t *testing.T) {
	cases := []struct {
		a, b any
		want bool
	}{
		{5, 5.0, true},
		{int64(7), uint8(7), true},
		{5, "5", false},
		{nil, nil, true},
		{nil, 0, false},
		{"a", "a", true},
		{map[string]any{"x": 1}, map[string]any{"x": 1}, true},
		{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 1, 8, 0, 0, 0, time.FixedZone("SGT", 8*3600)), true},
	}
	for _, c := range cases {
		if got := Equal(c.a, c.b); got != c.want {
			t.Errorf("Equal(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestCompareWithinClass(t *testing.T) {
	d1 := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	cases := []struct {
		a, b any
		want int
	}{
		{1, 2.5, -1},
		{300, 20, 1},
		{"apple", "banana", -1},
		{"b", "b", 0},
		{d2, d1, 1},
		{false, true, -1},
		{nil, 1, -1},
	}
	for _, c := range cases {
		if got := Compare(c.a, c.b); got != c.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestKeyCollapsesEqualValues(t *testing.T) {
	if Key(1) != Key(1.0) {
		t.Error("int and float keys should collide")
	}
	d := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	if Key(d) != Key(d.In(time.FixedZone("X", 3600))) {
		t.Error("same instant in different zones should share a key")
	}
	if Key([]any{1, 2}) != Key([]any{1, 2}) {
		t.Error("non-comparable values should hash by content")
	}
	if Key("1") == Key(1) {
		t.Error("string and number must not collide")
	}
}

func TestTypeName(t *testing.T) {
	cases := map[string]any{
		TypeNumber:    3.5,
		TypeString:    "x",
		TypeDate:      time.Now(),
		TypeBoolean:   true,
		TypeArray:     []any{1},
		TypeObject:    map[string]any{},
		TypeUndefined: nil,
	}
	for want, v := range cases {
		if got := TypeName(v); got != want {
			t.Errorf("TypeName(%v) = %q, want %q", v, got, want)
		}
	}
}

func TestToString(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{5.2, "5.2"},
		{100.0, "100"},
		{42, "42"},
		{nil, ""},
		{true, "true"},
		{"1PG", "1PG"},
	}
	for _, c := range cases {
		if got := ToString(c.in); got != c.want {
			t.Errorf("ToString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseInt(t *testing.T) {
	v, err := ParseInt(" 12 ")
	if err != nil || v != 12 {
		t.Errorf("ParseInt(\" 12 \") = %v, %v", v, err)
	}
	v, err = ParseInt("")
	if err != nil || v != nil {
		t.Errorf("blank should be absent, got %v, %v", v, err)
	}
	if _, err = ParseInt("abc"); !errors.Is(err, ErrNotParsable) {
		t.Errorf("expected ErrNotParsable, got %v", err)
	}
}

func TestParseFloatAcceptsFormattedNumbers(t *testing.T) {
	v, err := ParseFloat("$1,234.50")
	if err != nil || v != 1234.5 {
		t.Errorf("ParseFloat = %v, %v", v, err)
	}
	v, err = ParseFloat("-3")
	if err != nil || v != -3.0 {
		t.Errorf("ParseFloat(-3) = %v, %v", v, err)
	}
}

func TestParseDate(t *testing.T) {
	v, err := ParseDate("2013-02-04")
	if err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if !v.(time.Time).Equal(time.Date(2013, 2, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected date %v", v)
	}
	if _, err := ParseDate("not a date"); !errors.Is(err, ErrNotParsable) {
		t.Errorf("expected ErrNotParsable, got %v", err)
	}
}

func TestStringProbes(t *testing.T) {
	if !IsNumeric("1,234.56") || IsNumeric("PROJ-101") {
		t.Error("IsNumeric misclassified")
	}
	if !IsDate("Jan-2026") || IsDate("Singapore") {
		t.Error("IsDate misclassified")
	}
	if !IsBool("Yes") || IsBool("maybe") {
		t.Error("IsBool misclassified")
	}
}
