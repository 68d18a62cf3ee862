package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by a rename run. Every error returned from the
// pipeline wraps exactly one of these.
var (
	// ErrNotFound: manifest or raw data file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrParse: malformed YAML manifest or malformed CSV.
	ErrParse = errors.New("parse error")
	// ErrMissingKey: a required manifest field or output column is absent.
	ErrMissingKey = errors.New("missing key")
	// ErrIO: target folder or output file could not be created or written.
	ErrIO = errors.New("i/o error")
)

// Error carries a kind (one of the sentinels above), a message and the
// underlying cause. errors.Is matches both the kind and the cause.
type Error struct {
	Code    string
	Message string
	Kind    error
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewNotFoundError reports a missing file of the given kind ("manifest", "raw file").
func NewNotFoundError(what, path string, cause error) error {
	return &Error{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s %q not found", what, path),
		Kind:    ErrNotFound,
		Err:     cause,
	}
}

// NewParseError reports content that could not be parsed.
func NewParseError(what, path string, cause error) error {
	return &Error{
		Code:    "PARSE_ERROR",
		Message: fmt.Sprintf("cannot parse %s %q", what, path),
		Kind:    ErrParse,
		Err:     cause,
	}
}

// NewMissingKeyError reports a key that is required but absent.
func NewMissingKeyError(key, where string) error {
	return &Error{
		Code:    "MISSING_KEY",
		Message: fmt.Sprintf("%q not found in %s", key, where),
		Kind:    ErrMissingKey,
	}
}

// NewIOError reports a failed filesystem operation.
func NewIOError(op, path string, cause error) error {
	return &Error{
		Code:    "IO_ERROR",
		Message: fmt.Sprintf("%s %q", op, path),
		Kind:    ErrIO,
		Err:     cause,
	}
}
