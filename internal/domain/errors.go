package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrInvalidInput marks out-of-range or negative arguments. Never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownCode marks a billing code absent from the reference table. Never retried.
	ErrUnknownCode = errors.New("unknown billing code")

	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Error codes for API and tool responses
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeUnknownCode    = "UNKNOWN_CODE"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// UnknownCodeError names the billing code that was not found in the table.
type UnknownCodeError struct {
	CodeID string `json:"code_id"`
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown billing code %q", e.CodeID)
}

func (e *UnknownCodeError) Unwrap() error {
	return ErrUnknownCode
}

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ErrorCode maps err onto one of the ErrCode constants.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return ErrCodeInvalidInput
	case errors.Is(err, ErrUnknownCode):
		return ErrCodeUnknownCode
	case errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	case errors.Is(err, ErrForbidden):
		return ErrCodeForbidden
	case errors.Is(err, ErrUnauthorized):
		return ErrCodeUnauthorized
	default:
		return ErrCodeInternalServer
	}
}
