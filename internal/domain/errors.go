package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error surfaced by the workflow wraps exactly one of these.
var (
	ErrValidation      = errors.New("validation failed")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrNotFound        = errors.New("not found")
	ErrProviderFailure = errors.New("provider failure")
	ErrPermission      = errors.New("permission denied")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrConflict        = errors.New("conflict")
)

// Error pairs an error kind with a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Validation reports bad input shape, size or type.
func Validation(msg string) error { return newError(ErrValidation, msg, nil) }

// NotFound reports a missing session or image.
func NotFound(msg string) error { return newError(ErrNotFound, msg, nil) }

// Permission reports a failed ownership check.
func Permission(msg string) error { return newError(ErrPermission, msg, nil) }

// Unauthorized reports a missing or invalid identity.
func Unauthorized(msg string) error { return newError(ErrUnauthorized, msg, nil) }

// Conflict reports an operation that collides with existing state.
func Conflict(msg string) error { return newError(ErrConflict, msg, nil) }

// Provider reports an upstream generation or storage failure.
func Provider(msg string, cause error) error { return newError(ErrProviderFailure, msg, cause) }

// KindOf reports the error kind carried by err, or nil when err is not a domain error.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrRateLimited, ErrNotFound, ErrProviderFailure, ErrPermission, ErrUnauthorized, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Message returns the caller-facing message for err.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	if kind := KindOf(err); kind != nil {
		return kind.Error()
	}
	return "internal error"
}
