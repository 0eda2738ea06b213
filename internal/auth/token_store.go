package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"candlux/internal/cache"
)

const refreshTokenKeyPrefix = "refresh_token:"

// ErrTokenNotFound is returned when a refresh token is unknown or expired.
var ErrTokenNotFound = errors.New("refresh token not found")

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID string, id Identity, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (Identity, error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
}

// TokenStore handles storage and retrieval of refresh tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

type tokenRecord struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID string, id Identity, ttl time.Duration) error {
	payload, err := json.Marshal(tokenRecord{AccountID: id.AccountID, Email: id.Email, Role: id.Role})
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}
	return s.cache.Set(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl)
}

// GetRefreshToken retrieves refresh token data from Redis.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (Identity, error) {
	data, err := s.cache.Get(ctx, refreshTokenKeyPrefix+tokenID)
	if err != nil || data == nil {
		return Identity{}, ErrTokenNotFound
	}

	var rec tokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Identity{}, fmt.Errorf("unmarshal token data: %w", err)
	}
	return Identity{AccountID: rec.AccountID, Email: rec.Email, Role: rec.Role}, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshTokenKeyPrefix+tokenID)
}
