package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "candlux/internal/errors"
	"candlux/internal/model"
)

// MemoryAccountRepository keeps accounts in process memory. It backs
// STORE_DRIVER=memory for local runs and the end-to-end service tests.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
}

var _ AccountRepository = (*MemoryAccountRepository)(nil)

// NewMemoryAccountRepository creates an empty in-memory repository.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]model.Account)}
}

func (r *MemoryAccountRepository) Create(_ context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(account); err != nil {
		return err
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.accounts[account.ID] = clone(*account)
	return nil
}

func (r *MemoryAccountRepository) Update(_ context.Context, account *model.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[account.ID]; !ok {
		return apperrors.ErrNotFound
	}
	if err := r.checkUnique(account); err != nil {
		return err
	}
	account.UpdatedAt = time.Now().UTC()
	r.accounts[account.ID] = clone(*account)
	return nil
}

func (r *MemoryAccountRepository) FindByID(_ context.Context, id string) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := clone(a)
	return &out, nil
}

func (r *MemoryAccountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.find(func(a model.Account) bool { return a.Email == email })
}

func (r *MemoryAccountRepository) FindByEmailOrPhone(ctx context.Context, email, phone string) (*model.Account, error) {
	account, err := r.FindByEmail(ctx, email)
	if !errors.Is(err, apperrors.ErrNotFound) {
		return account, err
	}
	return r.find(func(a model.Account) bool { return a.Phone == phone })
}

func (r *MemoryAccountRepository) List(_ context.Context) ([]model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, clone(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryAccountRepository) ReplaceOTP(_ context.Context, id string, prevHash *string, hash string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || !sameHash(a.OTPHash, prevHash) {
		return apperrors.ErrConflict
	}
	a.SetOTP(hash, expiry)
	a.UpdatedAt = time.Now().UTC()
	r.accounts[id] = a
	return nil
}

func (r *MemoryAccountRepository) MarkVerified(_ context.Context, id, otpHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok || a.IsVerified || !sameHash(a.OTPHash, &otpHash) {
		return apperrors.ErrConflict
	}
	a.MarkVerified()
	a.UpdatedAt = time.Now().UTC()
	r.accounts[id] = a
	return nil
}

func (r *MemoryAccountRepository) find(match func(model.Account) bool) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if match(a) {
			out := clone(a)
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// checkUnique must be called with the write lock held.
func (r *MemoryAccountRepository) checkUnique(account *model.Account) error {
	for id, a := range r.accounts {
		if id == account.ID {
			continue
		}
		if a.Email == account.Email {
			return &apperrors.DuplicateError{Field: "email"}
		}
		if a.Phone == account.Phone {
			return &apperrors.DuplicateError{Field: "phone"}
		}
	}
	return nil
}

func sameHash(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// clone detaches the OTP pointers so callers cannot mutate stored state.
func clone(a model.Account) model.Account {
	if a.OTPHash != nil {
		h := *a.OTPHash
		a.OTPHash = &h
	}
	if a.OTPExpiry != nil {
		e := *a.OTPExpiry
		a.OTPExpiry = &e
	}
	return a
}
