// Package apperr defines the error taxonomy shared by gates, services and
// handlers. Each Kind maps to exactly one HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	KindUpstream Kind = iota // zero value: anything unclassified is a server error
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindAlreadyEnrolled
	KindConflict
	KindValidation
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindAlreadyEnrolled:
		return "AlreadyEnrolled"
	case KindConflict:
		return "Conflict"
	case KindValidation:
		return "ValidationFailed"
	case KindRateLimited:
		return "RateLimited"
	default:
		return "UpstreamFailure"
	}
}

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyEnrolled, KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FieldError is one entry of a validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is the typed failure returned by every service operation.
type Error struct {
	Kind    Kind
	Message string
	Details []FieldError
	Err     error // underlying cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "not authenticated"}
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found"}
	ErrAlreadyEnrolled = &Error{Kind: KindAlreadyEnrolled, Message: "already enrolled"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "conflict"}
	ErrValidation      = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrRateLimited     = &Error{Kind: KindRateLimited, Message: "too many requests"}
	ErrUpstream        = &Error{Kind: KindUpstream, Message: "internal server error"}
)

func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func AlreadyEnrolled(msg string) *Error { return &Error{Kind: KindAlreadyEnrolled, Message: msg} }
func Conflict(msg string) *Error        { return &Error{Kind: KindConflict, Message: msg} }
func RateLimited(msg string) *Error     { return &Error{Kind: KindRateLimited, Message: msg} }

// Validation builds a ValidationFailed error with field details.
func Validation(msg string, details ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// Upstream wraps a store, media or mail failure. op names the failed step
// for logs only.
func Upstream(op string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: op, Err: err}
}

// As extracts the *Error from err. Unclassified errors come back as
// UpstreamFailure wrapping err.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Upstream("unclassified", err)
}

// KindOf returns the Kind of err, or KindUpstream when unclassified.
// Callers check err != nil first; KindOf(nil) is also KindUpstream.
func KindOf(err error) Kind {
	if err == nil {
		return KindUpstream
	}
	return As(err).Kind
}
