// Package apperr defines the error kinds every service returns and how
// they map onto HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindValidation        Kind = "validation"
	KindInvalidState      Kind = "invalid_state"
	KindInvalidTransition Kind = "invalid_transition"
	KindConflict          Kind = "conflict"
	KindMethodNotAllowed  Kind = "method_not_allowed"
	KindInternal          Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the operation may succeed. Only
// internal failures qualify; every other kind is a decision about the input.
func (e *Error) Retryable() bool { return e.Kind == KindInternal }

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticated(format string, args ...interface{}) *Error {
	return newf(KindUnauthenticated, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(KindForbidden, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newf(KindInvalidState, format, args...)
}

func InvalidTransition(format string, args ...interface{}) *Error {
	return newf(KindInvalidTransition, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

// Internal wraps an unexpected failure. The message is what clients see;
// err is only logged.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf returns the kind of err, treating foreign errors as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind onto the response status.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindInvalidState, KindInvalidTransition, KindConflict:
		return http.StatusBadRequest
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to return to a client.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "internal server error"
}
