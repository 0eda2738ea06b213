package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"candlux/internal/auth"
	"candlux/internal/middleware"
)

// UserHandler serves the caller's own session.
type UserHandler struct {
	jwtService *auth.JWTService
}

// NewUserHandler creates a session handler.
func NewUserHandler(jwtService *auth.JWTService) *UserHandler {
	return &UserHandler{jwtService: jwtService}
}

// SessionResponse reports whether the caller holds a valid access token.
type SessionResponse struct {
	LoggedIn bool   `json:"loggedIn"`
	Role     string `json:"role,omitempty"`
}

// CheckSession godoc
// @Summary Check whether the bearer token is valid
// @Tags auth
// @Produce json
// @Success 200 {object} SessionResponse
// @Router /auth/check-session [get]
func (h *UserHandler) CheckSession(c echo.Context) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return c.JSON(http.StatusOK, SessionResponse{})
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		return c.JSON(http.StatusOK, SessionResponse{})
	}
	return c.JSON(http.StatusOK, SessionResponse{LoggedIn: true, Role: claims.Role})
}

// Me godoc
// @Summary Current token claims
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} errors.ErrorResponse
// @Router /me [get]
func (h *UserHandler) Me(c echo.Context) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return c.JSON(http.StatusOK, echo.Map{"token_claims": claims})
}
