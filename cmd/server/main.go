package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"candlux/internal/auth"
	"candlux/internal/cache"
	"candlux/internal/config"
	"candlux/internal/db"
	"candlux/internal/handler"
	"candlux/internal/logger"
	"candlux/internal/mailer"
	"candlux/internal/metrics"
	"candlux/internal/middleware"
	"candlux/internal/otp"
	"candlux/internal/router"
	"candlux/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title Candlux Account API
// @version 1.0
// @description Signup with emailed one-time codes, sessions and the storefront admin area.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accounts, closeStore, err := db.OpenAccountStore(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("account store init", zap.Error(err))
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cacheClient.Ping(ctx); err != nil {
		zl.Warn("redis unreachable, caching and rate limiting are degraded", zap.Error(err))
	}

	sender, err := mailer.New(cfg, zl)
	if err != nil {
		zl.Fatal("mailer init", zap.Error(err))
	}

	m := metrics.New()

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)
	passwords := auth.NewPasswordHasher(cfg.PasswordPepper)

	// Initialize services
	authService := service.NewAuthService(service.AuthDeps{
		Accounts:   accounts,
		Issuer:     otp.NewIssuer(),
		Mailer:     sender,
		Passwords:  passwords,
		JWT:        jwtService,
		TokenStore: tokenStore,
		Cache:      cacheClient,
		Metrics:    m,
		Logger:     zl,
		OTP: service.OTPSettings{
			TTL:       cfg.OTPTTL,
			ResendTTL: cfg.OTPResendTTL,
		},
	})
	accountService := service.NewAccountService(accounts, cacheClient, passwords)
	mailService := service.NewMailService(sender, cfg.MailFrom, zl)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Deps{
		Config:         cfg,
		Logger:         zl,
		Metrics:        m,
		JWT:            jwtService,
		AuthLimiter:    middleware.NewRateLimiter(cacheClient, "rl:auth", cfg.AuthRateLimit, cfg.AuthRateWindow, zl),
		AuthHandler:    handler.NewAuthHandler(authService, zl),
		UserHandler:    handler.NewUserHandler(jwtService),
		AccountHandler: handler.NewAccountHandler(accountService, mailService, zl),
	})

	addr := ":" + cfg.ServerPort
	go func() {
		zl.Info("server listening",
			zap.String("addr", addr),
			zap.String("store", cfg.StoreDriver),
			zap.String("mail", cfg.MailProvider),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown", zap.Error(err))
	}
	if err := closeStore(shutdownCtx); err != nil {
		zl.Error("close account store", zap.Error(err))
	}
	if err := cacheClient.Close(); err != nil {
		zl.Error("close redis", zap.Error(err))
	}
}
