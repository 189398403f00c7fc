package api

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError      ErrorType = "server_error"
	ErrorTypeInvalidRequest   ErrorType = "invalid_request"
	ErrorTypeConfiguration    ErrorType = "configuration_error"
	ErrorTypeTransport        ErrorType = "transport_error"
	ErrorTypeDecode           ErrorType = "decode_error"
	ErrorTypeComparisonFailed ErrorType = "comparison_failed"
)

// APIError represents a structured API error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewConfigurationError creates an APIError for missing credentials, a
// missing endpoint, or an unresolvable model selector.
func NewConfigurationError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeConfiguration,
		Message: message,
	}
}

// NewTransportError creates an APIError for a failed outbound call. A
// non-zero status is recorded as the error code.
func NewTransportError(status int, message string) *APIError {
	e := &APIError{
		Type:    ErrorTypeTransport,
		Message: message,
	}
	if status != 0 {
		e.Code = fmt.Sprintf("%d", status)
	}
	return e
}

// NewDecodeError creates an APIError for a provider payload that does not
// have the expected shape.
func NewDecodeError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeDecode,
		Message: message,
	}
}

// NewComparisonFailedError creates an APIError reported when every provider
// in a comparison failed.
func NewComparisonFailedError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeComparisonFailed,
		Message: message,
	}
}

// AsAPIError returns err as an *APIError. Errors of any other kind are
// wrapped as server errors. A nil error yields nil.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewServerError(err.Error())
}
