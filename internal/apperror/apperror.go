// Package apperror defines the application's error taxonomy.
//
// Every layer returns these (possibly wrapped with fmt.Errorf and %w); only
// the HTTP handler package translates them into status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnavailable marks a transient storage failure. Callers may retry.
	ErrUnavailable = errors.New("unavailable")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness or optimistic-version clash on resource.
func Conflict(resource, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict: %s", resource, message),
	}
}

// Unauthenticated is returned when credentials are missing or wrong.
// HTTP handlers map this to 401 Unauthorized.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// Unavailable wraps a transient storage failure. The cause stays in the chain
// for logging but the message shown to callers is generic.
func Unavailable(cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrUnavailable, cause),
		Message: "storage temporarily unavailable, please retry",
	}
}
