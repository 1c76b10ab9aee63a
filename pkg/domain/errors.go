package domain

import (
	"fmt"
	"strings"
)

// FieldError attributes a validation failure to a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError represents a domain-specific error with a code and message.
// Validation errors additionally carry the per-field breakdown so callers
// (form handlers, CSV import) can report field by field.
type DomainError struct {
	Code    string
	Message string
	Fields  []FieldError
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) error {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewValidationError creates a validation error from per-field failures.
// At least one field error is expected; the summary message lists the
// affected fields so the error stays readable in logs.
func NewValidationError(fields ...FieldError) error {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Field
	}
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("invalid fields: %s", strings.Join(names, ", ")),
		Fields:  fields,
	}
}

// NewFieldError creates a validation error for a single field.
func NewFieldError(field, message string) error {
	return NewValidationError(FieldError{Field: field, Message: message})
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError() error {
	return &DomainError{
		Code:    ErrCodeUnauthorized,
		Message: "Authentication required",
	}
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(msg string) error {
	return &DomainError{
		Code:    ErrCodeForbidden,
		Message: msg,
	}
}

// NewConflictError creates a new conflict error
func NewConflictError(msg string) error {
	return &DomainError{
		Code:    ErrCodeConflict,
		Message: msg,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(err error) error {
	return &DomainError{
		Code:    ErrCodeInternal,
		Message: "An internal error occurred",
		Err:     err,
	}
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeNotFound
	}
	return false
}

// IsValidation checks if the error is a validation error
func IsValidation(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeValidation
	}
	return false
}

// IsUnauthorized checks if the error is an unauthorized error
func IsUnauthorized(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeUnauthorized
	}
	return false
}

// IsForbidden checks if the error is a forbidden error
func IsForbidden(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeForbidden
	}
	return false
}

// IsConflict checks if the error is a conflict error
func IsConflict(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeConflict
	}
	return false
}

// IsInternal checks if the error is an internal error
func IsInternal(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == ErrCodeInternal
	}
	return false
}

// ValidationFields extracts the per-field breakdown from a validation
// error, or nil when err is not one.
func ValidationFields(err error) []FieldError {
	if de, ok := err.(*DomainError); ok && de.Code == ErrCodeValidation {
		return de.Fields
	}
	return nil
}

// GetErrorCode extracts the error code from a domain error
func GetErrorCode(err error) string {
	if de, ok := err.(*DomainError); ok {
		return de.Code
	}
	return ErrCodeInternal
}
