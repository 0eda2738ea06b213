package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"candlux/internal/auth"
	"candlux/internal/cache"
	"candlux/internal/config"
	apperrors "candlux/internal/errors"
	"candlux/internal/handler"
	"candlux/internal/mailer"
	"candlux/internal/metrics"
	"candlux/internal/middleware"
	"candlux/internal/model"
	"candlux/internal/otp"
	"candlux/internal/repository"
	"candlux/internal/service"
)

var codePattern = regexp.MustCompile(`>([0-9]{6})<`)

type inbox struct {
	mu   sync.Mutex
	msgs []mailer.Message
	fail error
}

func (b *inbox) Send(_ context.Context, msg mailer.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *inbox) lastCode(t *testing.T) string {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.msgs)
	m := codePattern.FindStringSubmatch(b.msgs[len(b.msgs)-1].HTML)
	require.Len(t, m, 2)
	return m[1]
}

type testServer struct {
	e         *echo.Echo
	repo      repository.AccountRepository
	inbox     *inbox
	passwords *auth.PasswordHasher
}

func newTestServer(t *testing.T, authLimit int) *testServer {
	t.Helper()
	mr := miniredis.RunT(t)
	cacheClient := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cacheClient.Close() })

	log := zap.NewNop()
	cfg := &config.Config{JWTSecret: "test-secret", MailFrom: "ops@candlux.local"}
	repo := repository.NewMemoryAccountRepository()
	box := &inbox{}
	passwords := auth.NewPasswordHasher("")
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	m := metrics.New()

	authService := service.NewAuthService(service.AuthDeps{
		Accounts:   repo,
		Issuer:     otp.NewIssuer(),
		Mailer:     box,
		Passwords:  passwords,
		JWT:        jwtService,
		TokenStore: auth.NewTokenStore(cacheClient),
		Cache:      cacheClient,
		Metrics:    m,
		Logger:     log,
		OTP:        service.OTPSettings{TTL: 10 * time.Minute, ResendTTL: time.Minute},
	})

	var limiter *middleware.RateLimiter
	if authLimit > 0 {
		limiter = middleware.NewRateLimiter(cacheClient, "rl:auth", authLimit, time.Minute, log)
	}

	e := echo.New()
	Register(e, Deps{
		Config:         cfg,
		Logger:         log,
		Metrics:        m,
		JWT:            jwtService,
		AuthLimiter:    limiter,
		AuthHandler:    handler.NewAuthHandler(authService, log),
		UserHandler:    handler.NewUserHandler(jwtService),
		AccountHandler: handler.NewAccountHandler(service.NewAccountService(repo, cacheClient, passwords), service.NewMailService(box, cfg.MailFrom, log), log),
	})
	return &testServer{e: e, repo: repo, inbox: box, passwords: passwords}
}

func (s *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"`+email+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp handler.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func (s *testServer) seed(t *testing.T, email string, role model.Role) {
	t.Helper()
	hash, err := s.passwords.Hash("secret")
	require.NoError(t, err)
	require.NoError(t, s.repo.Create(context.Background(), &model.Account{
		FullName:     "Seeded",
		Email:        email,
		Phone:        "+1" + email,
		PasswordHash: hash,
		IsVerified:   true,
		Role:         role,
	}))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const signupBody = `{"fullName":"Ada","email":"Ada@Example.com","phone":"555","password":"pw","confirmPassword":"pw"}`

func TestSignupVerifyLogin(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(http.MethodPost, "/api/auth/signup", signupBody, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Signup successful. OTP sent to email.")

	// unverified accounts cannot log in yet
	rec = s.do(http.MethodPost, "/api/auth/login", `{"email":"ada@example.com","password":"pw"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/verify-otp", `{"email":"ada@example.com","otp":"`+s.inbox.lastCode(t)+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OTP verified successfully")

	rec = s.do(http.MethodPost, "/api/auth/verify-otp", `{"email":"ada@example.com","otp":"000000"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User already verified")

	token := s.login(t, "ada@example.com", "pw")
	rec = s.do(http.MethodGet, "/api/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ada@example.com")

	rec = s.do(http.MethodGet, "/api/auth/check-session", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"loggedIn":true,"role":"user"}`, rec.Body.String())
}

func TestSignupErrors(t *testing.T) {
	s := newTestServer(t, 0)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/auth/signup", signupBody, "").Code)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{"malformed body", `{"email":`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"missing fields", `{"email":"b@x.com"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"password mismatch", `{"fullName":"B","email":"b@x.com","phone":"777","password":"a","confirmPassword":"b"}`, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"duplicate email", `{"fullName":"B","email":"ada@example.com","phone":"777","password":"a","confirmPassword":"a"}`, http.StatusBadRequest, "EMAIL_EXISTS"},
		{"duplicate phone", `{"fullName":"B","email":"b@x.com","phone":"555","password":"a","confirmPassword":"a"}`, http.StatusBadRequest, "PHONE_EXISTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/auth/signup", tt.body, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rec).Code)
		})
	}
}

func TestVerifyOTPErrors(t *testing.T) {
	s := newTestServer(t, 0)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/auth/signup", signupBody, "").Code)

	rec := s.do(http.MethodPost, "/api/auth/verify-otp", `{"email":"nobody@x.com","otp":"123456"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", decodeError(t, rec).Code)

	wrong := "000000"
	if s.inbox.lastCode(t) == wrong {
		wrong = "111111"
	}
	rec = s.do(http.MethodPost, "/api/auth/verify-otp", `{"email":"ada@example.com","otp":"`+wrong+`"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_OTP", decodeError(t, rec).Code)
}

func TestResendOTPWhileLive(t *testing.T) {
	s := newTestServer(t, 0)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/auth/signup", signupBody, "").Code)

	rec := s.do(http.MethodPost, "/api/auth/resend-otp", `{"email":"ada@example.com"}`, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "OTP_RATE_LIMITED", decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestSignupDeliveryFailure(t *testing.T) {
	s := newTestServer(t, 0)
	s.inbox.fail = assert.AnError

	rec := s.do(http.MethodPost, "/api/auth/signup", signupBody, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "admin@candlux.local", model.RoleAdmin)
	s.seed(t, "user@candlux.local", model.RoleUser)

	adminToken := s.login(t, "admin@candlux.local", "secret")
	userToken := s.login(t, "user@candlux.local", "secret")

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"user", userToken, http.StatusForbidden},
		{"admin", adminToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/admin/onlyadmin", "", tt.token)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	rec := s.do(http.MethodGet, "/api/admin/accounts", "", adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	var list handler.AccountsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Accounts, 2)

	rec = s.do(http.MethodGet, "/api/admin/accounts/missing", "", adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/admin/test-mail", `{}`, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"to":"ops@candlux.local"}`, rec.Body.String())
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t, 0)
	s.seed(t, "user@candlux.local", model.RoleUser)

	rec := s.do(http.MethodPost, "/api/auth/login", `{"email":"user@candlux.local","password":"secret"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	body := `{"refresh_token":"` + resp.RefreshToken + `"}`

	rec = s.do(http.MethodPost, "/api/auth/refresh", body, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var rotated handler.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))
	require.NotEmpty(t, rotated.AccessToken)
	require.NotEmpty(t, rotated.RefreshToken)
	assert.NotEqual(t, resp.RefreshToken, rotated.RefreshToken)

	// the old refresh token is gone after rotation
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/refresh", body, "").Code)

	next := `{"refresh_token":"` + rotated.RefreshToken + `"}`
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/auth/logout", next, "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/auth/refresh", next, "").Code)

	rec = s.do(http.MethodPost, "/api/auth/login", `{"email":"user@candlux.local","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	body := `{"email":"nobody@x.com","otp":"123456"}`

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/auth/verify-otp", body, "").Code)
	}
	rec := s.do(http.MethodPost, "/api/auth/verify-otp", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestInfraRoutes(t *testing.T) {
	s := newTestServer(t, 0)

	rec := s.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	s.do(http.MethodGet, "/healthz", "", "")
	rec = s.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	rec = s.do(http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Code)
}
