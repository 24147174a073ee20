// Package apperr carries the service error taxonomy: validation,
// state-conflict, permission, not-found and internal. The REST boundary maps
// each kind to a status code; everything below it just wraps.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport boundary.
type Kind int

const (
	Internal Kind = iota
	Validation
	Conflict
	Permission
	NotFound
)

// Error is a classified service error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a validation error; the request was malformed and no
// state changed.
func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: Validation, Msg: fmt.Sprintf(format, args...)}
}

// Conflictf builds a state-conflict error: the request was well formed but
// the aggregate is not in a state that allows it.
func Conflictf(format string, args ...interface{}) error {
	return &Error{Kind: Conflict, Msg: fmt.Sprintf(format, args...)}
}

// Permissionf builds a permission error.
func Permissionf(format string, args ...interface{}) error {
	return &Error{Kind: Permission, Msg: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error.
func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: NotFound, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error without losing it.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain; unclassified errors are
// internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
