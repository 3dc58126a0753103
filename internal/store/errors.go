package store

import (
	"errors"
	"fmt"
)

// Kind categorises store failures. The engine and CLI branch on kinds,
// never on message text.
type Kind string

const (
	// KindNotConfigured: no host was supplied by flags, env, or file.
	KindNotConfigured Kind = "NOT_CONFIGURED"

	// KindNotConnected: an operation was attempted before connect or
	// after close.
	KindNotConnected Kind = "NOT_CONNECTED"

	// KindFailedToWatch: the watch could not be created or was torn down.
	KindFailedToWatch Kind = "FAILED_TO_WATCH"

	// KindFailedToGetAll: a prefix-range get failed.
	KindFailedToGetAll Kind = "FAILED_TO_GET_ALL"

	// KindFailedToGet: a single-key get failed.
	KindFailedToGet Kind = "FAILED_TO_GET"

	// KindFailedToPut: a single-key put failed.
	KindFailedToPut Kind = "FAILED_TO_PUT"
)

// Error is a store failure tagged with its category. Message carries the
// offending key or prefix; Err carries the underlying transport error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

// Unwrap exposes the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error without an underlying cause.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError tags an underlying failure with a kind and context message.
func WrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is (or wraps) a store Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == kind
	}
	return false
}
