package errors

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

var (
	// ErrNotFound is returned when no account matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrAlreadyVerified is informational: the account needs no further verification.
	ErrAlreadyVerified = errors.New("user already verified")
	// ErrNoOTP is returned when verification is attempted before an OTP was issued.
	ErrNoOTP = errors.New("OTP has not been generated. Please request a new OTP.")
	// ErrOTPExpired is returned when the stored OTP is past its expiry.
	ErrOTPExpired = errors.New("OTP has expired. Please request a new one.")
	// ErrInvalidCode is returned when the submitted OTP does not match.
	ErrInvalidCode = errors.New("invalid OTP")
	// ErrConflict is returned when the OTP changed between read and write.
	ErrConflict = errors.New("account was modified concurrently, please retry")
	// ErrInvalidCredentials is returned when email or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountNotVerified is returned on login before the email was verified.
	ErrAccountNotVerified = errors.New("email not verified")
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// ValidationError reports request fields that are missing or inconsistent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// DuplicateError reports that Field ("email" or "phone") is already registered.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	if e.Field == "phone" {
		return "Phone number already in use."
	}
	return "Email already exists."
}

// RateLimitError is returned while a previously issued OTP is still live.
type RateLimitError struct {
	RetryAfter time.Duration
}

// Seconds rounds the wait up to whole seconds, never below one.
func (e *RateLimitError) Seconds() int {
	s := int(math.Ceil(e.RetryAfter.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Wait %ds before resending OTP", e.Seconds())
}

// DeliveryError wraps a mail relay failure.
type DeliveryError struct {
	Err error
}

func (e *DeliveryError) Error() string {
	return "deliver email: " + e.Err.Error()
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Delivery failures and unknown errors are reported generically.
func MapErrorToHTTP(err error) *HTTPError {
	var (
		validationErr *ValidationError
		duplicateErr  *DuplicateError
		rateLimitErr  *RateLimitError
	)
	switch {
	case errors.As(err, &validationErr):
		return NewHTTPError(http.StatusBadRequest, validationErr.Message, "VALIDATION_FAILED")
	case errors.As(err, &duplicateErr):
		code := "EMAIL_EXISTS"
		if duplicateErr.Field == "phone" {
			code = "PHONE_EXISTS"
		}
		return NewHTTPError(http.StatusBadRequest, duplicateErr.Error(), code)
	case errors.As(err, &rateLimitErr):
		return NewHTTPError(http.StatusTooManyRequests, rateLimitErr.Error(), "OTP_RATE_LIMITED")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNotFound.Error(), "ACCOUNT_NOT_FOUND")
	case errors.Is(err, ErrNoOTP):
		return NewHTTPError(http.StatusBadRequest, ErrNoOTP.Error(), "OTP_NOT_GENERATED")
	case errors.Is(err, ErrOTPExpired):
		return NewHTTPError(http.StatusBadRequest, ErrOTPExpired.Error(), "OTP_EXPIRED")
	case errors.Is(err, ErrInvalidCode):
		return NewHTTPError(http.StatusBadRequest, ErrInvalidCode.Error(), "INVALID_OTP")
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, ErrConflict.Error(), "CONCURRENT_UPDATE")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrInvalidRefreshToken):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidRefreshToken.Error(), "INVALID_REFRESH_TOKEN")
	case errors.Is(err, ErrAccountNotVerified):
		return NewHTTPError(http.StatusForbidden, ErrAccountNotVerified.Error(), "ACCOUNT_NOT_VERIFIED")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
