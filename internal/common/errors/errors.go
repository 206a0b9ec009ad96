// Package errors provides the standardized error taxonomy shared by the office services.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeSystem       ErrorCode = "SYSTEM_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Invalid input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFieldValidationError lists every failing field in Details.
func NewFieldValidationError(fields map[string]string) *StandardError {
	parts := make([]string, 0, len(fields))
	for field, msg := range fields {
		parts = append(parts, field+": "+msg)
	}
	err := NewValidationError(strings.Join(parts, "; "))
	err.Metadata = map[string]interface{}{"fields": fields}
	return err
}

func NewNotFoundError(resource string, id interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("%s: %v", resource, id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStateError names both the current and the attempted state.
func NewInvalidStateError(current, attempted string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidState,
		Message:   fmt.Sprintf("cannot move from %q to %q", current, attempted),
		Retryable: false,
		Metadata: map[string]interface{}{
			"current":   current,
			"attempted": attempted,
		},
		Timestamp: time.Now().UTC(),
	}
}

func NewConflictError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   "Concurrent modification or duplicate key",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnauthorizedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Authentication required",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewForbiddenError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Message:   "Access denied",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSystemError wraps a storage or collaborator failure.
func NewSystemError(operation string, err error) *StandardError {
	details := operation
	if err != nil {
		details = fmt.Sprintf("%s: %s", operation, err.Error())
	}
	return &StandardError{
		Code:      ErrCodeSystem,
		Message:   "Internal server error",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// AsStandard extracts a StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidState:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
