// Package errors defines the service's typed errors and translates them into
// HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a service error carrying an HTTP status code.
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New creates an error with an explicit status code.
func New(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a cause to a copy of the error.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, cause: cause}
}

// InvalidArg reports a malformed or missing request argument.
func InvalidArg(name string) *Error {
	return New(http.StatusBadRequest, fmt.Sprintf("invalid argument: %s", name))
}

// Validation reports a request that failed a domain validation rule.
func Validation(message string) *Error {
	return New(http.StatusBadRequest, message)
}

// NotFound reports a missing resource.
func NotFound(what string) *Error {
	return New(http.StatusNotFound, fmt.Sprintf("%s not found", what))
}

// PermissionDenied reports insufficient visibility into a target.
func PermissionDenied(message string) *Error {
	return New(http.StatusForbidden, message)
}

// Internal wraps an unexpected error.
func Internal(err error) *Error {
	return &Error{Code: http.StatusInternalServerError, Message: "internal error", cause: err}
}

// IsValidation reports whether err is a client-side (4xx) service error.
func IsValidation(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code >= 400 && e.Code < 500
	}
	return false
}
