// Package errors defines the failure taxonomy shared by every tabula
// package: a structured Error carrying a machine-readable Code, plus
// constructors and predicates for each code.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeMissingColumn: a strict accessor asked for a column that does not exist.
	CodeMissingColumn Code = "MISSING_COLUMN"
	// CodeInvalidArgument: a constructor or operation got a value of the wrong shape.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	// CodeParseFailure: a per-cell coercion could not convert its input.
	CodeParseFailure Code = "PARSE_FAILURE"
	// CodeIOFailure: an adapter failed to read or write its backing store.
	CodeIOFailure Code = "IO_FAILURE"
)

// Error is the structured error returned across tabula.
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// --- Constructors ---

// MissingColumn reports that op required column name.
func MissingColumn(op, name string) *Error {
	return &Error{
		Code:    CodeMissingColumn,
		Message: fmt.Sprintf("%s: column %q does not exist", op, name),
		Details: map[string]any{"operation": op, "column": name},
	}
}

// InvalidArgument reports a malformed parameter.
func InvalidArgument(param, reason string) *Error {
	return &Error{
		Code:    CodeInvalidArgument,
		Message: fmt.Sprintf("invalid %s: %s", param, reason),
		Details: map[string]any{"parameter": param},
	}
}

// ParseFailure reports a cell in column that could not be coerced.
func ParseFailure(column string, value any, cause error) *Error {
	return &Error{
		Code:    CodeParseFailure,
		Message: fmt.Sprintf("cannot parse value %v in column %q", value, column),
		Details: map[string]any{"column": column, "value": value},
		Cause:   cause,
	}
}

// IOFailure reports an adapter failure during op.
func IOFailure(op string, cause error) *Error {
	return &Error{
		Code:    CodeIOFailure,
		Message: fmt.Sprintf("%s failed", op),
		Details: map[string]any{"operation": op},
		Cause:   cause,
	}
}

// --- Predicates ---

// CodeOf returns the Code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsMissingColumn reports whether err carries CodeMissingColumn.
func IsMissingColumn(err error) bool { return CodeOf(err) == CodeMissingColumn }

// IsInvalidArgument reports whether err carries CodeInvalidArgument.
func IsInvalidArgument(err error) bool { return CodeOf(err) == CodeInvalidArgument }

// IsParseFailure reports whether err carries CodeParseFailure.
func IsParseFailure(err error) bool { return CodeOf(err) == CodeParseFailure }

// IsIOFailure reports whether err carries CodeIOFailure.
func IsIOFailure(err error) bool { return CodeOf(err) == CodeIOFailure }
