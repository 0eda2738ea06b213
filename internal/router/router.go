package router

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"candlux/docs"
	"candlux/internal/auth"
	"candlux/internal/config"
	"candlux/internal/handler"
	"candlux/internal/metrics"
	"candlux/internal/middleware"
	"candlux/internal/model"
)

// Deps are the pieces Register wires together.
type Deps struct {
	Config         *config.Config
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	JWT            *auth.JWTService
	AuthLimiter    *middleware.RateLimiter
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	AccountHandler *handler.AccountHandler
}

// Register wires routes and middleware.
func Register(e *echo.Echo, d Deps) {
	e.HTTPErrorHandler = handler.ErrorHandler(d.Logger)
	e.Validator = NewValidator()

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Logger, d.Metrics))
	e.Use(echomw.Recover())

	if d.Config.SwaggerHost != "" {
		docs.SwaggerInfo.Host = d.Config.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	authGroup := api.Group("/auth")
	if d.AuthLimiter != nil {
		authGroup.Use(d.AuthLimiter.Middleware())
	}
	authGroup.POST("/signup", d.AuthHandler.Signup)
	authGroup.POST("/verify-otp", d.AuthHandler.VerifyOTP)
	authGroup.POST("/resend-otp", d.AuthHandler.ResendOTP)
	authGroup.POST("/login", d.AuthHandler.Login)
	authGroup.POST("/refresh", d.AuthHandler.Refresh)
	authGroup.POST("/logout", d.AuthHandler.Logout)
	authGroup.GET("/check-session", d.UserHandler.CheckSession)

	// Secured routes (require JWT authentication)
	secured := api.Group("", middleware.JWT(d.JWT))
	secured.GET("/me", d.UserHandler.Me)

	admin := api.Group("/admin", middleware.JWT(d.JWT), middleware.RequireRole(model.RoleAdmin))
	admin.GET("/onlyadmin", d.AccountHandler.OnlyAdmin)
	admin.GET("/accounts", d.AccountHandler.ListAccounts)
	admin.GET("/accounts/:id", d.AccountHandler.GetAccount)
	admin.POST("/test-mail", d.AccountHandler.TestMail)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator reports fields by their JSON names.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
