package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by writes attempted without an active session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound is returned when a record id does not exist in its stream.
	ErrNotFound = errors.New("record not found")
)

// ParseError reports a malformed date or number.
type ParseError struct {
	Field string
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("parse %q: %v", e.Input, e.Err)
	}
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// InvalidInputError reports an out-of-range or missing field.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StoreError wraps a failure reported by a record store adapter.
type StoreError struct {
	Op     string
	Stream Stream
	Err    error
}

func (e *StoreError) Error() string {
	if e.Stream == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Stream, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func invalid(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}
