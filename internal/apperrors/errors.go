// Package apperrors defines the domain error taxonomy shared by services and
// HTTP handlers.
//
// Services return typed errors built with the constructors below; handlers
// push them onto the gin context and the error middleware maps the Code to an
// HTTP status:
//
//	if exists {
//	    return apperrors.Conflict("recipe is already in favorites")
//	}
//
//	if errors.Is(err, apperrors.ErrNotFound) { ... }
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeValidation      Code = "VALIDATION"
	CodeConflict        Code = "CONFLICT"
	CodeNotRelated      Code = "NOT_RELATED"
	CodeNotFound        Code = "NOT_FOUND"
	CodeForbidden       Code = "FORBIDDEN"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeInternal        Code = "INTERNAL"
)

// HTTPStatus returns the response status for the code. Conflicts and
// removal of a relation that does not exist are reported as 400, matching
// the public API contract.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeConflict, CodeNotRelated:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error. Field is set for validation errors scoped to a
// single request field.
type Error struct {
	Code    Code
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Code, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Field == ""
}

// Sentinels for errors.Is.
var (
	ErrValidation      = &Error{Code: CodeValidation}
	ErrConflict        = &Error{Code: CodeConflict}
	ErrNotRelated      = &Error{Code: CodeNotRelated}
	ErrNotFound        = &Error{Code: CodeNotFound}
	ErrForbidden       = &Error{Code: CodeForbidden}
	ErrUnauthenticated = &Error{Code: CodeUnauthenticated}
	ErrUnavailable     = &Error{Code: CodeUnavailable}
)

func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

// NotRelated reports removal of a subscription, favorite or cart entry that
// does not exist.
func NotRelated(message string) *Error {
	return &Error{Code: CodeNotRelated, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

func Unauthenticated(message string) *Error {
	return &Error{Code: CodeUnauthenticated, Message: message}
}

// Unavailable wraps a failure of an external dependency (object storage,
// cache) that the caller may retry later.
func Unavailable(message string, err error) *Error {
	return &Error{Code: CodeUnavailable, Message: message, Err: err}
}

// StatusOf returns the HTTP status for err, or 500 when err carries no
// domain code.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code.HTTPStatus()
	}
	return http.StatusInternalServerError
}
