// Package apperr defines the error kinds surfaced by the service layer and
// their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
)

// Error is an application error carrying a kind, a stable code and a message
// that is safe to show to the caller.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports bad or missing user input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: "VALIDATION_ERROR", Message: fmt.Sprintf(format, args...)}
}

// NotFound reports that a referenced case, room, equipment or file is absent.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: fmt.Sprintf(format, args...)}
}

// Conflict reports a uniqueness violation caused by a concurrent writer.
func Conflict(err error, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: "CONFLICT", Message: fmt.Sprintf(format, args...), Err: err}
}

// Internal wraps an unexpected failure. The message is generic; err is only logged.
func Internal(err error, message string) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_SERVER_ERROR", Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for errors not created by this package.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Public returns the code and message to expose for err. Internal errors are masked.
func Public(err error, fallback string) (string, string) {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Code, appErr.Message
	}
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Code, appErr.Message
	}
	return "INTERNAL_SERVER_ERROR", fallback
}
