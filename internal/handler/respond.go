package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "candlux/internal/errors"
)

// MessageResponse is the body of informational replies.
type MessageResponse struct {
	Message string `json:"message"`
}

func invalidBody() error {
	return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrorResponse{
		Error: "invalid request body",
		Code:  "INVALID_REQUEST",
	})
}

// validationFailed turns a validator error into a ValidationError. Missing
// fields report requiredMsg; other rule failures name the field.
func validationFailed(err error, requiredMsg string) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() != "required" {
				return apperrors.NewValidationError(fmt.Sprintf("%s is invalid", fe.Field()))
			}
		}
	}
	return apperrors.NewValidationError(requiredMsg)
}

// respondError maps a service error to its HTTP form. Server-side failures
// are logged here since the client only sees a generic message.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var rl *apperrors.RateLimitError
	if errors.As(err, &rl) {
		c.Response().Header().Set("Retry-After", strconv.Itoa(rl.Seconds()))
	}

	httpErr := apperrors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("route", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// ErrorHandler renders every error as an ErrorResponse. Errors that did not
// pass through respondError are mapped and logged here.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			he = respondError(c, log, err).(*echo.HTTPError)
		}

		body, ok := he.Message.(apperrors.ErrorResponse)
		if !ok {
			body = apperrors.ErrorResponse{
				Error: fmt.Sprint(he.Message),
				Code:  strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_")),
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, body)
		}
		if err != nil {
			log.Warn("write error response", zap.Error(err))
		}
	}
}
