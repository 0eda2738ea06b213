package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"candlux/internal/auth"
	"candlux/internal/cache"
	"candlux/internal/metrics"
	"candlux/internal/model"
)

func ok(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter := NewRateLimiter(cache.New(mr.Addr(), "", 0), "rl:auth", 2, time.Minute, zap.NewNop())

	e := echo.New()
	e.POST("/signup", ok, limiter.Middleware())

	for i := 0; i < 2; i++ {
		rec := serve(e, httptest.NewRequest(http.MethodPost, "/signup", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/signup", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	mr.FastForward(time.Minute)
	rec = serve(e, httptest.NewRequest(http.MethodPost, "/signup", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.New(mr.Addr(), "", 0)
	mr.Close()

	e := echo.New()
	e.POST("/signup", ok, NewRateLimiter(c, "rl:auth", 1, time.Minute, zap.NewNop()).Middleware())

	for i := 0; i < 3; i++ {
		rec := serve(e, httptest.NewRequest(http.MethodPost, "/signup", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestJWTAndRequireRole(t *testing.T) {
	jwtService := auth.NewJWTService("secret")
	adminToken, err := jwtService.GenerateAccessToken(auth.Identity{AccountID: "1", Email: "a@x.com", Role: "admin"})
	require.NoError(t, err)
	userToken, err := jwtService.GenerateAccessToken(auth.Identity{AccountID: "2", Email: "b@x.com", Role: "user"})
	require.NoError(t, err)

	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		return c.String(http.StatusOK, claims.Email)
	}, JWT(jwtService), RequireRole(model.RoleAdmin))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"user token", "Bearer " + userToken, http.StatusForbidden},
		{"admin token", "Bearer " + adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := serve(e, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.New()

	e := echo.New()
	e.Use(RequestLogger(zap.New(core), m))
	e.GET("/healthz", ok)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/healthz", fields["uri"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}
