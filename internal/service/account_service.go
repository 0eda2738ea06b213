package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"candlux/internal/auth"
	"candlux/internal/cache"
	apperrors "candlux/internal/errors"
	"candlux/internal/model"
	"candlux/internal/repository"
)

const accountCacheTTL = 5 * time.Minute

// SeedAccount is one entry of the seed file.
type SeedAccount struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AccountService handles account administration.
type AccountService interface {
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	ListAccounts(ctx context.Context) ([]model.Account, error)
	SeedAccounts(ctx context.Context, accounts []SeedAccount) (created, updated int, err error)
}

type accountService struct {
	repo      repository.AccountRepository
	cache     *cache.Client
	passwords *auth.PasswordHasher
}

// NewAccountService creates a new account service.
func NewAccountService(repo repository.AccountRepository, cache *cache.Client, passwords *auth.PasswordHasher) AccountService {
	return &accountService{
		repo:      repo,
		cache:     cache,
		passwords: passwords,
	}
}

func accountCacheKey(id string) string {
	return fmt.Sprintf("account:%s", id)
}

// GetAccount retrieves an account by ID with caching.
func (s *accountService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var cached model.Account
	if s.cache.GetJSON(ctx, accountCacheKey(id), &cached) {
		return &cached, nil
	}

	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find account: %w", err)
	}

	_ = s.cache.SetJSON(ctx, accountCacheKey(id), account, accountCacheTTL)
	return account, nil
}

// ListAccounts returns every account, oldest first.
func (s *accountService) ListAccounts(ctx context.Context) ([]model.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// SeedAccounts creates pre-verified accounts. An entry whose email already
// exists overwrites that account's name, role and password.
func (s *accountService) SeedAccounts(ctx context.Context, accounts []SeedAccount) (created, updated int, err error) {
	for i, item := range accounts {
		email := NormalizeEmail(item.Email)
		if email == "" || item.Password == "" || strings.TrimSpace(item.Phone) == "" {
			return created, updated, apperrors.NewValidationError(fmt.Sprintf("seed entry %d: email, phone and password are required", i))
		}
		role, err := model.ParseRole(item.Role)
		if err != nil {
			return created, updated, apperrors.NewValidationError(fmt.Sprintf("seed entry %d: %v", i, err))
		}
		hash, err := s.passwords.Hash(item.Password)
		if err != nil {
			return created, updated, err
		}

		existing, err := s.repo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			existing.FullName = strings.TrimSpace(item.FullName)
			existing.Role = role
			existing.PasswordHash = hash
			if err := s.repo.Update(ctx, existing); err != nil {
				return created, updated, fmt.Errorf("update %s: %w", email, err)
			}
			_ = s.cache.Delete(ctx, accountCacheKey(existing.ID))
			updated++
		case errors.Is(err, apperrors.ErrNotFound):
			account := &model.Account{
				FullName:     strings.TrimSpace(item.FullName),
				Email:        email,
				Phone:        strings.TrimSpace(item.Phone),
				PasswordHash: hash,
				IsVerified:   true,
				Role:         role,
			}
			if err := s.repo.Create(ctx, account); err != nil {
				return created, updated, fmt.Errorf("create %s: %w", email, err)
			}
			created++
		default:
			return created, updated, fmt.Errorf("find %s: %w", email, err)
		}
	}
	return created, updated, nil
}
