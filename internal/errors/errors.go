package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError for transport mapping.
type Kind string

const (
	KindBadRequest   Kind = "bad_request"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// AppError is an error carrying a kind, a machine readable code and a
// message safe to return to API clients.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status for the error kind.
func (e *AppError) StatusCode() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func BadRequest(code, message string) *AppError {
	return &AppError{Kind: KindBadRequest, Code: code, Message: message}
}

func Unauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

func NotFound(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Code: "NOT_FOUND", Message: fmt.Sprintf("%s not found", resource)}
}

func Conflict(code, message string) *AppError {
	return &AppError{Kind: KindConflict, Code: code, Message: message}
}

// Internal wraps an unexpected failure. The cause is kept for logging and
// never rendered to clients.
func Internal(message string, cause error) *AppError {
	return &AppError{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: message, Cause: cause}
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus maps err to an HTTP status code; errors without an AppError
// in their chain are 500.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}
