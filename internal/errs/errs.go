// Package errs provides a small coded error type shared across the
// pipeline. Codes map onto the failure taxonomy the run policy cares
// about: configuration problems abort before any write, storage problems
// on the write path abort the run, transport problems after the ledger
// append are surfaced without undoing persisted rows.
package errs

import (
	stderrs "errors"
	"fmt"
)

// Code classifies an error for run policy decisions.
type Code uint8

const (
	// CodeUnknown is for unclassified errors.
	CodeUnknown Code = iota

	// CodeConfiguration is for missing or invalid configuration state
	// (absent config table, unusable settings).
	CodeConfiguration

	// CodeStorage is for tabular store failures (missing table, failed
	// read or append).
	CodeStorage

	// CodeNotFound is for lookups that matched nothing (e.g. no summary
	// row for the target date).
	CodeNotFound

	// CodeTransport is for messaging delivery failures.
	CodeTransport

	// CodeInvalid is for malformed input data (non-date-like cell where
	// a date is required, bad range arguments).
	CodeInvalid
)

func (c Code) String() string {
	switch c {
	case CodeConfiguration:
		return "configuration"
	case CodeStorage:
		return "storage"
	case CodeNotFound:
		return "not_found"
	case CodeTransport:
		return "transport"
	case CodeInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error carries a code, a developer-facing message and an optional cause.
type Error struct {
	code Code
	msg  string
	orig error
}

// New builds a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a coded error around a cause. A nil cause yields nil so the
// usual `return errs.Wrap(code, err, ...)` tail works unconditionally.
func Wrap(code Code, orig error, format string, args ...any) error {
	if orig == nil {
		return nil
	}
	return &Error{code: code, msg: fmt.Sprintf(format, args...), orig: orig}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error's code.
func (e *Error) Code() Code { return e.code }

// CodeOf extracts the Code from anywhere in err's chain, defaulting to
// CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if stderrs.As(err, &e) {
		return e.code
	}
	return CodeUnknown
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsNotFound is a convenience for the most commonly tested code.
func IsNotFound(err error) bool { return Is(err, CodeNotFound) }
