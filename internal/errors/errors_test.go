package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", NewValidationError("all fields are required"), http.StatusBadRequest, "VALIDATION_FAILED"},
		{"duplicate email", &DuplicateError{Field: "email"}, http.StatusBadRequest, "EMAIL_EXISTS"},
		{"duplicate phone", &DuplicateError{Field: "phone"}, http.StatusBadRequest, "PHONE_EXISTS"},
		{"wrapped not found", fmt.Errorf("verify: %w", ErrNotFound), http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
		{"rate limited", &RateLimitError{RetryAfter: 30 * time.Second}, http.StatusTooManyRequests, "OTP_RATE_LIMITED"},
		{"expired", ErrOTPExpired, http.StatusBadRequest, "OTP_EXPIRED"},
		{"invalid code", ErrInvalidCode, http.StatusBadRequest, "INVALID_OTP"},
		{"no otp", ErrNoOTP, http.StatusBadRequest, "OTP_NOT_GENERATED"},
		{"conflict", ErrConflict, http.StatusConflict, "CONCURRENT_UPDATE"},
		{"not verified", ErrAccountNotVerified, http.StatusForbidden, "ACCOUNT_NOT_VERIFIED"},
		{"delivery", &DeliveryError{Err: errors.New("smtp down")}, http.StatusInternalServerError, "INTERNAL_ERROR"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestRateLimitError_Seconds(t *testing.T) {
	assert.Equal(t, 45, (&RateLimitError{RetryAfter: 44100 * time.Millisecond}).Seconds())
	assert.Equal(t, 1, (&RateLimitError{RetryAfter: 10 * time.Millisecond}).Seconds())
	assert.Equal(t, "Wait 60s before resending OTP", (&RateLimitError{RetryAfter: time.Minute}).Error())
}

func TestDeliveryError_Unwrap(t *testing.T) {
	cause := errors.New("relay refused")
	err := fmt.Errorf("signup: %w", &DeliveryError{Err: cause})

	var deliveryErr *DeliveryError
	assert.True(t, errors.As(err, &deliveryErr))
	assert.ErrorIs(t, err, cause)
	// delivery failures must not leak the relay message to clients
	assert.Equal(t, "internal server error", MapErrorToHTTP(err).Message)
}
