// Package errors provides the application-level error taxonomy for the sync
// core: validation, not-found, unauthorized, transient sync failures, and
// fatal migration failures.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeSync         ErrorType = "sync_error"
	ErrorTypeMigration    ErrorType = "migration_error"
	ErrorTypeInternal     ErrorType = "internal_error"
)

// AppError represents an application error with additional context.
// Retryable marks transient failures where the caller may retry and the
// previously cached data remains valid.
type AppError struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	cause     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func firstDetail(details []string) string {
	if len(details) > 0 {
		return details[0]
	}
	return ""
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: firstDetail(details),
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Details: firstDetail(details),
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Details: firstDetail(details),
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
		Details: firstDetail(details),
	}
}

// NewSyncError creates a retryable sync error for transient network or
// remote-service failures.
func NewSyncError(message string, details ...string) *AppError {
	return &AppError{
		Type:      ErrorTypeSync,
		Message:   message,
		Details:   firstDetail(details),
		Retryable: true,
	}
}

// NewMigrationError creates a fatal migration error; the store is unusable
// until the schema problem is fixed or rebuilt.
func NewMigrationError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeMigration,
		Message: message,
		Details: firstDetail(details),
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Details: firstDetail(details),
	}
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeNotFound
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeUnauthorized
}

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Retryable
}
