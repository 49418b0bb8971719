// Package pkg holds small utilities shared across the module: the
// domain-level error taxonomy and the HTTP response envelope that maps it
// to status codes.
package pkg

import (
	"errors"
	"fmt"
)

// Kind is one of the six error kinds the HTTP edge maps to status codes.
type Kind int

const (
	KindValidation Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindInternal
)

// Error carries a Kind plus a caller-facing message. errors.Is compares by
// Kind, not by message, so handlers can build specific messages
// ("Email is already in use") while still matching the kind at the edge.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is lets errors.Is(err, ErrConflict) match any *Error of the same Kind
// regardless of its message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel values for errors.Is comparisons; their Message is never shown.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrInternal        = &Error{Kind: KindInternal}
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(message string) error {
	return &Error{Kind: KindUnauthenticated, Message: message}
}

func Forbidden(message string) error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) error {
	return &Error{Kind: KindConflict, Message: message}
}

func Internal(err error) error {
	if err == nil {
		return &Error{Kind: KindInternal, Message: "internal error"}
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}

// KindOf reports the Kind of err if it (or something it wraps) is an
// *Error, and KindInternal with ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindInternal, false
}
