package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestConstructorsCarryCodes(t *testing.T) {
	cases := []struct {
		err  *Error
		code Code
		is   func(error) bool
	}{
		{MissingColumn("pivot", "Ticker"), CodeMissingColumn, IsMissingColumn},
		{InvalidArgument("columnNames", "duplicate name"), CodeInvalidArgument, IsInvalidArgument},
		{ParseFailure("Value", "abc", stderrors.New("bad")), CodeParseFailure, IsParseFailure},
		{IOFailure("read", stderrors.New("disk")), CodeIOFailure, IsIOFailure},
	}
	for _, c := range cases {
		if c.err.Code != c.code {
			t.Errorf("code = %s, want %s", c.err.Code, c.code)
		}
		wrapped := fmt.Errorf("outer: %w", c.err)
		if !c.is(wrapped) {
			t.Errorf("%s predicate should see through wrapping", c.code)
		}
	}
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := IOFailure("write", cause)
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("message %q should include cause", err.Error())
	}
	if !stderrors.Is(err, cause) {
		t.Error("Unwrap should expose the cause")
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if CodeOf(stderrors.New("x")) != "" {
		t.Error("foreign errors have no code")
	}
	if IsMissingColumn(nil) {
		t.Error("nil is not a missing column")
	}
}

func TestWithDetail(t *testing.T) {
	err := MissingColumn("expectSeries", "a").WithDetail("available", []string{"b"})
	if _, ok := err.Details["available"]; !ok {
		t.Error("detail not recorded")
	}
}
