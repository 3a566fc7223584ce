// Package apperror defines the error taxonomy shared by services and handlers.
//
// Services return *AppError values wrapping one of the sentinels below.
// Handlers turn the sentinel into a status code, so the service layer never
// needs to know about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
)

// Wire codes, as they appear in the "error" field of API responses.
const (
	CodeUnauthenticated = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeValidation      = "validation_error"
	CodeConflict        = "conflict"
	CodeInternal        = "internal_error"
)

var codes = []struct {
	sentinel error
	code     string
}{
	{ErrValidation, CodeValidation},
	{ErrUnauthenticated, CodeUnauthenticated},
	{ErrNotFound, CodeNotFound},
	{ErrForbidden, CodeForbidden},
	{ErrConflict, CodeConflict},
}

type AppError struct {
	Err     error  // one of the sentinels
	Message string // safe to show to the caller
	Field   string // input field at fault, for validation errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// As returns the *AppError in err's chain, or nil.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Code returns the wire code for err. Errors outside the taxonomy, including
// an *AppError with a foreign sentinel, are CodeInternal.
func Code(err error) string {
	if As(err) == nil {
		return CodeInternal
	}
	for _, c := range codes {
		if errors.Is(err, c.sentinel) {
			return c.code
		}
	}
	return CodeInternal
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// ValidationFailed is the InvalidArgument case: a value that can never
// succeed, like a slot index out of range or a malformed username.
func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflictf(format string, args ...any) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// Forbidden means the caller is known but does not own the resource.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated means the operation needs a caller identity and got none.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "authentication required",
	}
}
