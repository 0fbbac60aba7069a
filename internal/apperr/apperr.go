// Package apperr defines the application error taxonomy shared by
// services and handlers. Services return these for expected failures;
// handlers map kinds to HTTP statuses. Infrastructure failures stay
// plain wrapped errors and surface as internal errors.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	// KindUnknown marks errors that are not application errors.
	KindUnknown Kind = iota
	// KindNotFound means a referenced entity does not exist.
	KindNotFound
	// KindNotAllowed means the caller lacks rights over the entity, or
	// the entity is in the wrong state for the requested transition.
	KindNotAllowed
	// KindConflict means the operation would violate a uniqueness or
	// exclusivity invariant.
	KindConflict
	// KindInvalidArgument means the input is malformed.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindNotAllowed:
		return "not_allowed"
	case KindConflict:
		return "conflict"
	case KindInvalidArgument:
		return "invalid_argument"
	}
	return "unknown"
}

// Error is an application error with a kind and a user-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NotFound builds a NotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// NotAllowed builds a NotAllowed error.
func NotAllowed(format string, args ...any) *Error {
	return &Error{Kind: KindNotAllowed, Message: fmt.Sprintf(format, args...)}
}

// Conflict builds a Conflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument builds an InvalidArgument error.
func InvalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind from err, unwrapping as needed. Returns
// KindUnknown for nil and for non-application errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}
