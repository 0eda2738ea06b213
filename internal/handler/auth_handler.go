package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "candlux/internal/errors"
	"candlux/internal/service"
)

const (
	msgSignupCreated   = "Signup successful. OTP sent to email."
	msgSignupResent    = "OTP re-sent to your email. Please verify."
	msgVerified        = "OTP verified successfully"
	msgResent          = "OTP resent successfully"
	msgAlreadyVerified = "User already verified"
)

// AuthHandler handles signup, OTP and session endpoints.
type AuthHandler struct {
	authService service.AuthService
	log         *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, log: log}
}

// SignupRequest represents a signup form.
type SignupRequest struct {
	FullName        string `json:"fullName" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// VerifyOTPRequest carries the code typed by the user.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

// ResendOTPRequest asks for a new code.
type ResendOTPRequest struct {
	Email string `json:"email" validate:"required"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents a logout request.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         interface{} `json:"user,omitempty"`
}

// Signup godoc
// @Summary Register a new account
// @Description Creates an unverified account and emails a 6-digit code. A repeated signup for an unverified account whose code lapsed re-sends the code. A taken email or phone is a 400; 409 means the code changed concurrently.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup data"
// @Success 201 {object} MessageResponse
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.log, validationFailed(err, "all fields are required"))
	}

	outcome, err := h.authService.Signup(c.Request().Context(), service.SignupInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}

	if outcome == service.SignupResent {
		return c.JSON(http.StatusOK, MessageResponse{Message: msgSignupResent})
	}
	return c.JSON(http.StatusCreated, MessageResponse{Message: msgSignupCreated})
}

// VerifyOTP godoc
// @Summary Verify the emailed code
// @Tags auth
// @Accept json
// @Produce json
// @Param request body VerifyOTPRequest true "Email and code"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c echo.Context) error {
	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.log, validationFailed(err, "email and otp are required"))
	}

	err := h.authService.VerifyOTP(c.Request().Context(), req.Email, req.OTP)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, MessageResponse{Message: msgVerified})
	case errors.Is(err, apperrors.ErrAlreadyVerified):
		return c.JSON(http.StatusOK, MessageResponse{Message: msgAlreadyVerified})
	default:
		return respondError(c, h.log, err)
	}
}

// ResendOTP godoc
// @Summary Send a new code
// @Description Issues a short-lived code once the previous one has expired.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ResendOTPRequest true "Email"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/resend-otp [post]
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var req ResendOTPRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.log, validationFailed(err, "email is required"))
	}

	err := h.authService.ResendOTP(c.Request().Context(), req.Email)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, MessageResponse{Message: msgResent})
	case errors.Is(err, apperrors.ErrAlreadyVerified):
		return c.JSON(http.StatusOK, MessageResponse{Message: msgAlreadyVerified})
	default:
		return respondError(c, h.log, err)
	}
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.log, validationFailed(err, "email and password are required"))
	}

	accessToken, refreshToken, account, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         account,
	})
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.log, validationFailed(err, "refresh_token is required"))
	}

	accessToken, refreshToken, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Logout godoc
// @Summary Logout
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LogoutRequest true "Refresh token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, h.log, validationFailed(err, "refresh_token is required"))
	}

	if err := h.authService.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}
