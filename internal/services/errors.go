// Package services provides the business logic layer between handlers and storage.
// Services validate input, run the aggregation engine and translate failures
// into ServiceErrors the HTTP layer can render.
package services

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeStorage    = "STORAGE_ERROR"
	CodeNotFound   = "NOT_FOUND"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`

	cause error
}

func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewValidationError reports bad client input
func NewValidationError(message string) *ServiceError {
	return NewServiceError(CodeValidation, message)
}

// NewStorageError wraps a storage failure. The message is safe to return to
// clients; the cause is only for logs.
func NewStorageError(cause error) *ServiceError {
	return &ServiceError{
		Code:    CodeStorage,
		Message: "storage unavailable",
		cause:   cause,
	}
}

// NewNotFoundError reports a missing record
func NewNotFoundError(message string) *ServiceError {
	return NewServiceError(CodeNotFound, message)
}

// IsCode reports whether err is a ServiceError with the given code
func IsCode(err error, code string) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Code == code
}
