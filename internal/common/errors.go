package common

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation marks input that failed validation (bad quantity, missing field, illegal unassign).
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks an unknown article, profile or client.
	ErrNotFound = errors.New("not found")
	// ErrReferenced marks a delete blocked by existing references.
	ErrReferenced = errors.New("resource is referenced")
	// ErrConflict marks an optimistic revision that could not be committed.
	ErrConflict = errors.New("version conflict")
	// ErrConfiguration marks stored data that violates an integrity rule.
	ErrConfiguration = errors.New("configuration error")
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetails attaches UI-renderable details to the error.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// Validation builds a 400 error wrapping ErrValidation.
func Validation(format string, args ...any) *AppError {
	return NewAppError("VALIDATION", fmt.Sprintf(format, args...), http.StatusBadRequest, ErrValidation)
}

// NotFound builds a 404 error wrapping ErrNotFound.
func NotFound(resource, id string) *AppError {
	return NewAppError("NOT_FOUND", fmt.Sprintf("%s %q not found", resource, id), http.StatusNotFound, ErrNotFound).
		WithDetails(map[string]any{"resource": resource, "id": id})
}

// Referenced builds a 409 error wrapping ErrReferenced.
func Referenced(format string, args ...any) *AppError {
	return NewAppError("REFERENCED", fmt.Sprintf(format, args...), http.StatusConflict, ErrReferenced)
}

// Conflict builds a 409 error wrapping ErrConflict.
func Conflict(format string, args ...any) *AppError {
	return NewAppError("CONFLICT", fmt.Sprintf(format, args...), http.StatusConflict, ErrConflict)
}

// Configuration builds a 500 error wrapping ErrConfiguration.
func Configuration(format string, args ...any) *AppError {
	return NewAppError("CONFIGURATION", fmt.Sprintf(format, args...), http.StatusInternalServerError, ErrConfiguration)
}
