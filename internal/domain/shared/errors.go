package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by every levy module. The HTTP layer maps these onto
// status codes, so they must stay stable.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeForbidden     = "FORBIDDEN"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeValidation    = "VALIDATION_FAILED"
	CodeConfiguration = "CONFIGURATION"
	CodeInvalidState  = "INVALID_STATE"
	CodeUnexpected    = "UNEXPECTED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// CorrelationID ties the error returned to the caller to the log line that
	// carries the full detail. Empty for ordinary domain failures.
	CorrelationID string `json:"correlation_id,omitempty"`
	cause         error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped infrastructure error, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code, so that
// errors.Is(err, shared.ErrNotFound) works for any NOT_FOUND error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewNotFoundError creates a NOT_FOUND error for the named resource
func NewNotFoundError(resource string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// NewConflictError creates a CONFLICT error
func NewConflictError(message string) *DomainError {
	return NewDomainError(CodeConflict, message)
}

// NewForbiddenError creates a FORBIDDEN error
func NewForbiddenError(message string) *DomainError {
	return NewDomainError(CodeForbidden, message)
}

// NewUnauthorizedError creates an UNAUTHORIZED error
func NewUnauthorizedError(message string) *DomainError {
	return NewDomainError(CodeUnauthorized, message)
}

// NewValidationError creates a VALIDATION_FAILED error
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewConfigurationError creates a CONFIGURATION error
func NewConfigurationError(message string) *DomainError {
	return NewDomainError(CodeConfiguration, message)
}

// NewUnexpectedError wraps an infrastructure failure. The message is generic and
// only exposes the correlation id; cause stays available to errors.Unwrap.
func NewUnexpectedError(correlationID string, cause error) *DomainError {
	msg := "An unexpected error occurred"
	if correlationID != "" {
		msg = fmt.Sprintf("An unexpected error occurred (reference %s)", correlationID)
	}
	return &DomainError{
		Code:          CodeUnexpected,
		Message:       msg,
		CorrelationID: correlationID,
		cause:         cause,
	}
}

// AsDomainError extracts a DomainError from err
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrConflict            = NewDomainError(CodeConflict, "Resource conflicts with existing state")
	ErrForbidden           = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrConfiguration       = NewDomainError(CodeConfiguration, "Required configuration is missing")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError(CodeConflict, "Resource was modified by another process")
)
