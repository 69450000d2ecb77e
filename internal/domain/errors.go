package domain

import (
	"errors"
	"fmt"
	"time"
)

// Consultation errors. They are local to one consultation and always surfaced to the caller.
var (
	ErrEmptyInput      = errors.New("transcript text is empty")
	ErrNoActivePatient = errors.New("no active patient consultation")
	ErrPatientNotFound = errors.New("patient not found")
	ErrInvalidSpeaker  = errors.New("invalid speaker")
	ErrNotFound        = errors.New("not found")
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeNoActivePatient = "NO_ACTIVE_PATIENT"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRateLimit       = "RATE_LIMIT_EXCEEDED"
	ErrCodeTimeout         = "REQUEST_TIMEOUT"
	ErrCodeInternalServer  = "INTERNAL_SERVER_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
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

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// ErrorCode maps a consultation error onto its API error code.
func ErrorCode(err error) string {
	var validationErr *ValidationError
	switch {
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrInvalidSpeaker):
		return ErrCodeInvalidInput
	case errors.As(err, &validationErr):
		return ErrCodeValidation
	case errors.Is(err, ErrNoActivePatient):
		return ErrCodeNoActivePatient
	case errors.Is(err, ErrPatientNotFound), errors.Is(err, ErrNotFound):
		return ErrCodeNotFound
	default:
		return ErrCodeInternalServer
	}
}
