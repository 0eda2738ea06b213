package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"candlux/internal/cache"
	"candlux/internal/errors"
)

// RateLimiter is a fixed-window limiter keyed by client IP and backed by redis.
type RateLimiter struct {
	cache  *cache.Client
	prefix string
	limit  int
	window time.Duration
	log    *zap.Logger
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(c *cache.Client, prefix string, limit int, window time.Duration, log *zap.Logger) *RateLimiter {
	return &RateLimiter{cache: c, prefix: prefix, limit: limit, window: window, log: log}
}

// Middleware rejects requests over the limit with 429. If redis cannot be
// reached the request is let through.
func (r *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.limit <= 0 {
				return next(c)
			}
			key := fmt.Sprintf("%s:%s", r.prefix, c.RealIP())
			ctx := c.Request().Context()

			count, err := r.cache.Incr(ctx, key, r.window)
			if err != nil {
				r.log.Warn("rate limiter unavailable", zap.Error(err))
				return next(c)
			}
			if count > int64(r.limit) {
				retry := r.cache.TTL(ctx, key)
				if retry <= 0 {
					retry = r.window
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(int((retry+time.Second-1)/time.Second)))
				return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
					Error: "too many requests",
					Code:  "RATE_LIMITED",
				})
			}
			return next(c)
		}
	}
}
