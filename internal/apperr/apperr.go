// Package apperr defines the error kinds surfaced to API clients.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindStore Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindForbidden
	KindAuth
	KindRateLimit
)

// Code is the stable, client-visible identifier of the kind.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindAuth:
		return "unauthorized"
	case KindRateLimit:
		return "rate_limited"
	default:
		return "internal_error"
	}
}

func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindAuth:
		return http.StatusUnauthorized
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is an application error. Message is safe to show to clients; Err is
// kept for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	status  int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithStatus overrides the HTTP status derived from the kind.
func (e *Error) WithStatus(status int) *Error {
	e.status = status
	return e
}

func (e *Error) HTTPStatus() int {
	if e.status != 0 {
		return e.status
	}
	return e.Kind.HTTPStatus()
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error { return New(KindValidation, message, nil) }
func NotFound(message string) *Error   { return New(KindNotFound, message, nil) }
func Conflict(message string) *Error   { return New(KindConflict, message, nil) }
func Forbidden(message string) *Error  { return New(KindForbidden, message, nil) }
func Auth(message string) *Error       { return New(KindAuth, message, nil) }

func RateLimited(message string) *Error { return New(KindRateLimit, message, nil) }

// Store wraps an infrastructure failure behind a generic message.
func Store(err error) *Error {
	return New(KindStore, "internal server error", err)
}

// From finds the first *Error in err's chain. Errors outside the taxonomy are
// reported as store failures.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Store(err)
}
