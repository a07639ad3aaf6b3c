// Package kvserr defines the error kinds that cross engine, protocol, and
// server boundaries, and the typed Error that carries one.
package kvserr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can branch on it without parsing
// messages.
type Kind string

const (
	// IoError means underlying filesystem or network I/O failed.
	IoError Kind = "io_error"

	// CorruptLog means a record decoded at a known-valid pointer had an
	// unexpected variant, or recovery encountered undecodable mid-stream
	// bytes.
	CorruptLog Kind = "corrupt_log"

	// CorruptValue means stored bytes were not valid UTF-8 (tree engine
	// only).
	CorruptValue Kind = "corrupt_value"

	// KeyNotFound means remove was called on an absent key.
	KeyNotFound Kind = "key_not_found"

	// ProtocolError means a client received a malformed or mismatched
	// response.
	ProtocolError Kind = "protocol_error"

	// EngineMismatch means the server was started with a different engine
	// than the data directory was initialized with.
	EngineMismatch Kind = "engine_mismatch"
)

// Error is a kvs error tagged with a Kind, optionally wrapping an
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New builds an Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}

// Wrapf builds an Error of the given kind with a formatted message, wrapping
// cause for errors.Unwrap.
func Wrapf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind, so
// errors.Is(err, kvserr.New(kvserr.KeyNotFound, "")) works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is a kvserr.Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
