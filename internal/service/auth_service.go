package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"candlux/internal/auth"
	"candlux/internal/cache"
	apperrors "candlux/internal/errors"
	"candlux/internal/mailer"
	"candlux/internal/metrics"
	"candlux/internal/model"
	"candlux/internal/otp"
	"candlux/internal/repository"
)

// ResendGrace is how long an OTP must have been expired before a repeated
// signup for the same unverified account re-issues it.
const ResendGrace = 60 * time.Second

// SignupInput is the signup form.
type SignupInput struct {
	FullName        string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// SignupOutcome tells the caller which signup path was taken.
type SignupOutcome int

const (
	// SignupCreated means a new account was stored.
	SignupCreated SignupOutcome = iota
	// SignupResent means an existing unverified account got a new OTP.
	SignupResent
)

// AuthService handles signup, OTP verification and sessions.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (SignupOutcome, error)
	VerifyOTP(ctx context.Context, email, code string) error
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, account *model.Account, err error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken, newRefreshToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
}

// OTPSettings are the two code lifetimes.
type OTPSettings struct {
	// TTL applies to the first code and to codes re-issued by signup.
	TTL time.Duration
	// ResendTTL applies to codes requested through resend.
	ResendTTL time.Duration
}

// AuthDeps are the collaborators of the auth service.
type AuthDeps struct {
	Accounts   repository.AccountRepository
	Issuer     *otp.Issuer
	Mailer     mailer.Sender
	Passwords  *auth.PasswordHasher
	JWT        *auth.JWTService
	TokenStore auth.TokenStoreInterface
	// Cache holds admin account views; OTP writes evict the account's entry.
	Cache   *cache.Client
	Metrics *metrics.Metrics
	Logger  *zap.Logger
	OTP     OTPSettings
	// Now defaults to time.Now.
	Now func() time.Time
}

type authService struct {
	accountRepo repository.AccountRepository
	issuer      *otp.Issuer
	mailer      mailer.Sender
	passwords   *auth.PasswordHasher
	jwtService  *auth.JWTService
	tokenStore  auth.TokenStoreInterface
	cache       *cache.Client
	metrics     *metrics.Metrics
	log         *zap.Logger
	otp         OTPSettings
	now         func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(d AuthDeps) AuthService {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := d.Metrics
	if m == nil {
		m = metrics.New()
	}
	return &authService{
		accountRepo: d.Accounts,
		issuer:      d.Issuer,
		mailer:      d.Mailer,
		passwords:   d.Passwords,
		jwtService:  d.JWT,
		tokenStore:  d.TokenStore,
		cache:       d.Cache,
		metrics:     m,
		log:         log,
		otp:         d.OTP,
		now:         now,
	}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a new account and mails its first OTP. A repeated signup
// for an unverified account whose code lapsed more than ResendGrace ago
// re-issues the code instead of failing.
func (s *authService) Signup(ctx context.Context, in SignupInput) (SignupOutcome, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = NormalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	if in.FullName == "" || in.Email == "" || in.Phone == "" || in.Password == "" || in.ConfirmPassword == "" {
		return 0, apperrors.NewValidationError("all fields are required")
	}
	if in.Password != in.ConfirmPassword {
		return 0, apperrors.NewValidationError("passwords do not match")
	}

	now := s.now()
	existing, err := s.accountRepo.FindByEmailOrPhone(ctx, in.Email, in.Phone)
	switch {
	case err == nil:
		if resendEligible(existing, now) {
			if err := s.reissue(ctx, existing, now, s.otp.TTL, mailer.TemplateResent, "signup_resend"); err != nil {
				s.metrics.Signups.WithLabelValues(metrics.OutcomeError).Inc()
				return 0, err
			}
			s.metrics.Signups.WithLabelValues("resent").Inc()
			return SignupResent, nil
		}
		s.metrics.Signups.WithLabelValues("duplicate").Inc()
		if existing.Email == in.Email {
			return 0, &apperrors.DuplicateError{Field: "email"}
		}
		return 0, &apperrors.DuplicateError{Field: "phone"}
	case !errors.Is(err, apperrors.ErrNotFound):
		return 0, fmt.Errorf("check account existence: %w", err)
	}

	hashedPassword, err := s.passwords.Hash(in.Password)
	if err != nil {
		return 0, err
	}
	code, err := s.issuer.Issue(now, s.otp.TTL)
	if err != nil {
		return 0, err
	}

	account := &model.Account{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: hashedPassword,
		Role:         model.RoleUser,
	}
	account.SetOTP(code.Hash, code.Expiry)

	if err := s.accountRepo.Create(ctx, account); err != nil {
		var dup *apperrors.DuplicateError
		if errors.As(err, &dup) {
			s.metrics.Signups.WithLabelValues("duplicate").Inc()
			return 0, err
		}
		return 0, fmt.Errorf("create account: %w", err)
	}
	s.metrics.OTPIssued.WithLabelValues("signup").Inc()

	if err := s.notify(ctx, account, code.Plain, s.otp.TTL, mailer.TemplateWelcome); err != nil {
		s.metrics.Signups.WithLabelValues(metrics.OutcomeError).Inc()
		return 0, err
	}
	s.metrics.Signups.WithLabelValues("created").Inc()
	return SignupCreated, nil
}

// VerifyOTP marks the account verified when code matches the live OTP.
func (s *authService) VerifyOTP(ctx context.Context, email, code string) error {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return apperrors.NewValidationError("email and otp are required")
	}

	account, err := s.find(ctx, email)
	if err != nil {
		return err
	}
	if account.IsVerified {
		return apperrors.ErrAlreadyVerified
	}
	if !account.HasOTP() {
		s.metrics.OTPVerified.WithLabelValues(metrics.OutcomeRejected).Inc()
		return apperrors.ErrNoOTP
	}
	if otp.Expired(*account.OTPExpiry, s.now()) {
		s.metrics.OTPVerified.WithLabelValues(metrics.OutcomeRejected).Inc()
		return apperrors.ErrOTPExpired
	}
	if !otp.Matches(*account.OTPHash, code) {
		s.metrics.OTPVerified.WithLabelValues(metrics.OutcomeRejected).Inc()
		return apperrors.ErrInvalidCode
	}

	if err := s.accountRepo.MarkVerified(ctx, account.ID, *account.OTPHash); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		return fmt.Errorf("mark verified: %w", err)
	}
	_ = s.cache.Delete(ctx, accountCacheKey(account.ID))
	s.metrics.OTPVerified.WithLabelValues(metrics.OutcomeOK).Inc()
	return nil
}

// ResendOTP issues a short-lived code once the previous one has lapsed.
func (s *authService) ResendOTP(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("email is required")
	}

	account, err := s.find(ctx, email)
	if err != nil {
		return err
	}
	if account.IsVerified {
		return apperrors.ErrAlreadyVerified
	}

	now := s.now()
	if account.HasOTP() && !otp.Expired(*account.OTPExpiry, now) {
		return &apperrors.RateLimitError{RetryAfter: account.OTPExpiry.Sub(now)}
	}
	return s.reissue(ctx, account, now, s.otp.ResendTTL, mailer.TemplateResent, "resend")
}

// Login authenticates a verified account and returns access and refresh tokens.
func (s *authService) Login(ctx context.Context, email, password string) (accessToken, refreshToken string, account *model.Account, err error) {
	account, err = s.accountRepo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", "", nil, apperrors.ErrInvalidCredentials
		}
		return "", "", nil, fmt.Errorf("find account: %w", err)
	}

	if !s.passwords.Compare(account.PasswordHash, password) {
		return "", "", nil, apperrors.ErrInvalidCredentials
	}
	if !account.IsVerified {
		return "", "", nil, apperrors.ErrAccountNotVerified
	}

	id := auth.Identity{AccountID: account.ID, Email: account.Email, Role: string(account.Role)}
	accessToken, refreshToken, err = s.issueTokens(ctx, id)
	if err != nil {
		return "", "", nil, err
	}
	return accessToken, refreshToken, account, nil
}

// RefreshToken rotates a refresh token: the presented one is revoked and a
// new access and refresh pair is returned.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, string, error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.ID == "" {
		return "", "", apperrors.ErrInvalidRefreshToken
	}

	stored, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", "", apperrors.ErrInvalidRefreshToken
	}
	if stored.AccountID != claims.AccountID || stored.Email != claims.Email {
		return "", "", apperrors.ErrInvalidRefreshToken
	}

	if err := s.tokenStore.DeleteRefreshToken(ctx, claims.ID); err != nil {
		return "", "", fmt.Errorf("revoke refresh token: %w", err)
	}
	return s.issueTokens(ctx, stored)
}

func (s *authService) issueTokens(ctx context.Context, id auth.Identity) (string, string, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(id)
	if err != nil {
		return "", "", fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(id)
	if err != nil {
		return "", "", fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, id, auth.RefreshTokenExpiry); err != nil {
		return "", "", fmt.Errorf("store refresh token: %w", err)
	}
	return accessToken, refreshToken, nil
}

// Logout invalidates a refresh token.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil || claims.ID == "" {
		return apperrors.ErrInvalidRefreshToken
	}
	return s.tokenStore.DeleteRefreshToken(ctx, claims.ID)
}

func (s *authService) find(ctx context.Context, email string) (*model.Account, error) {
	account, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

// reissue replaces the account's OTP, guarded on the hash it was read with,
// and mails the new code.
func (s *authService) reissue(ctx context.Context, account *model.Account, now time.Time, ttl time.Duration, template, reason string) error {
	code, err := s.issuer.Issue(now, ttl)
	if err != nil {
		return err
	}
	if err := s.accountRepo.ReplaceOTP(ctx, account.ID, account.OTPHash, code.Hash, code.Expiry); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return err
		}
		return fmt.Errorf("store otp: %w", err)
	}
	_ = s.cache.Delete(ctx, accountCacheKey(account.ID))
	s.metrics.OTPIssued.WithLabelValues(reason).Inc()
	return s.notify(ctx, account, code.Plain, ttl, template)
}

func (s *authService) notify(ctx context.Context, account *model.Account, code string, ttl time.Duration, template string) error {
	msg, err := mailer.OTPMessage(template, account.Email, mailer.NewOTPData(account.FullName, code, ttl))
	if err == nil {
		err = s.mailer.Send(ctx, msg)
	}
	if err != nil {
		s.metrics.MailFailures.Inc()
		s.log.Error("otp delivery failed",
			zap.String("account_id", account.ID),
			zap.String("template", template),
			zap.Error(err),
		)
		return &apperrors.DeliveryError{Err: err}
	}
	return nil
}

func resendEligible(a *model.Account, now time.Time) bool {
	if a.IsVerified || !a.HasOTP() {
		return false
	}
	return now.Sub(*a.OTPExpiry) > ResendGrace
}
