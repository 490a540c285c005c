package models

import (
	"fmt"
	"net/http"
)

// ErrorCode is a string type for consistent error codes.
type ErrorCode string

// Predefined error codes for common API errors.
const (
	// Generic
	ErrorCodeInternalServerError ErrorCode = "internal_server_error"
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed    ErrorCode = "method_not_allowed"

	// Authentication & Authorization
	ErrorCodeAuthRequired       ErrorCode = "auth_required"
	ErrorCodeForbidden          ErrorCode = "forbidden"
	ErrorCodeInvalidCredentials ErrorCode = "invalid_credentials"
	ErrorCodeInvalidResetToken  ErrorCode = "invalid_reset_token"

	// Validation
	ErrorCodeMissingParameter ErrorCode = "missing_parameter"
	ErrorCodeInvalidFormat    ErrorCode = "invalid_format"
)

type APIError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    any       `json:"details,omitempty"`
	StatusCode int       `json:"-"`
}

// Error makes APIError implement the error interface.
func (e APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewAPIError is a constructor for APIError.
func NewAPIError(code ErrorCode, message string, details any, statusCode int) APIError {
	return APIError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: statusCode,
	}
}

// Shorthands for the errors every handler returns the same way.

func AuthRequiredError() APIError {
	return NewAPIError(ErrorCodeAuthRequired, "Authentication required", nil, http.StatusUnauthorized)
}

func ForbiddenError() APIError {
	return NewAPIError(ErrorCodeForbidden, "Invalid or expired token", nil, http.StatusForbidden)
}

func InvalidCredentialsError() APIError {
	return NewAPIError(ErrorCodeInvalidCredentials, "Invalid username or password", nil, http.StatusUnauthorized)
}

func InvalidResetTokenError() APIError {
	return NewAPIError(ErrorCodeInvalidResetToken, "Invalid or expired reset token", nil, http.StatusBadRequest)
}

// ServerFaultError carries the underlying fault description in Details.
func ServerFaultError(message string, err error) APIError {
	var details any
	if err != nil {
		details = err.Error()
	}
	return NewAPIError(ErrorCodeInternalServerError, message, details, http.StatusInternalServerError)
}
