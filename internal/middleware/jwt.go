package middleware

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"candlux/internal/auth"
	"candlux/internal/errors"
	"candlux/internal/model"
)

const contextKey = "user"

// JWT validates the bearer token with jwtService and stores its
// *auth.Claims in the context.
func JWT(jwtService *auth.JWTService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  contextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "invalid or missing token",
				Code:  "UNAUTHORIZED",
			})
		},
	})
}

// ClaimsFrom returns the claims stored by JWT.
func ClaimsFrom(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(contextKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// RequireRole allows only tokens carrying role. It must run after JWT.
func RequireRole(role model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
					Error: "invalid or missing token",
					Code:  "UNAUTHORIZED",
				})
			}
			if claims.Role != string(role) {
				return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
					Error: "access denied",
					Code:  "FORBIDDEN",
				})
			}
			return next(c)
		}
	}
}
