package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// AccessTokenExpiry is the duration for which access tokens are valid.
	AccessTokenExpiry = 15 * time.Minute
	// RefreshTokenExpiry is the duration for which refresh tokens are valid.
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

// Claims represents JWT claims.
type Claims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a token asserts about its bearer.
type Identity struct {
	AccountID string
	Email     string
	Role      string
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Secret returns the signing key for the echo-jwt middleware.
func (s *JWTService) Secret() []byte {
	return s.secret
}

// GenerateAccessToken generates a new access token for the account.
func (s *JWTService) GenerateAccessToken(id Identity) (string, error) {
	return s.sign(id, "", AccessTokenExpiry)
}

// GenerateRefreshToken generates a new refresh token for the account.
// The refresh token ID is returned separately for storage in Redis.
func (s *JWTService) GenerateRefreshToken(id Identity) (tokenID string, token string, err error) {
	tokenID = uuid.NewString()
	token, err = s.sign(id, tokenID, RefreshTokenExpiry)
	return tokenID, token, err
}

func (s *JWTService) sign(id Identity, tokenID string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &Claims{
		AccountID: id.AccountID,
		Email:     id.Email,
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   id.AccountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Identity returns the bearer identity carried by c.
func (c *Claims) Identity() Identity {
	return Identity{AccountID: c.AccountID, Email: c.Email, Role: c.Role}
}
