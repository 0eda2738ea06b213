package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	apperrors "candlux/internal/errors"
	"candlux/internal/model"
)

const mysqlDuplicateEntry = 1062

// AccountRepository defines account persistence operations.
//
// Lookups return apperrors.ErrNotFound when nothing matches. Create returns
// *apperrors.DuplicateError on a unique email or phone violation. The OTP
// writes are conditional on the OTP hash the caller last read and return
// apperrors.ErrConflict when it changed in between.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	Update(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	// FindByEmailOrPhone returns the email holder if there is one, otherwise
	// the phone holder.
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	// ReplaceOTP stores a new OTP if the current hash still equals prevHash
	// (nil meaning no OTP).
	ReplaceOTP(ctx context.Context, id string, prevHash *string, hash string, expiry time.Time) error
	// MarkVerified sets the verified flag and clears the OTP if the account
	// is unverified and still holds otpHash.
	MarkVerified(ctx context.Context, id, otpHash string) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a GORM-backed account repository.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create creates a new account.
func (r *accountRepository) Create(ctx context.Context, account *model.Account) error {
	err := r.db.WithContext(ctx).Create(account).Error
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return duplicateFromMessage(mysqlErr.Message)
	}
	return err
}

// Update saves every field of an existing account.
func (r *accountRepository) Update(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Save(account).Error
}

// FindByID finds an account by ID.
func (r *accountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByEmail finds an account by email.
func (r *accountRepository) FindByEmail(ctx context.Context, email string) (*model.Account, error) {
	return r.first(r.db.WithContext(ctx).Where("email = ?", email))
}

func (r *accountRepository) FindByEmailOrPhone(ctx context.Context, email, phone string) (*model.Account, error) {
	account, err := r.FindByEmail(ctx, email)
	if !errors.Is(err, apperrors.ErrNotFound) {
		return account, err
	}
	return r.first(r.db.WithContext(ctx).Where("phone = ?", phone))
}

// List lists all accounts, oldest first.
func (r *accountRepository) List(ctx context.Context) ([]model.Account, error) {
	var accounts []model.Account
	if err := r.db.WithContext(ctx).Order("created_at").Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) ReplaceOTP(ctx context.Context, id string, prevHash *string, hash string, expiry time.Time) error {
	q := r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", id)
	if prevHash == nil {
		q = q.Where("otp_hash IS NULL")
	} else {
		q = q.Where("otp_hash = ?", *prevHash)
	}
	res := q.Updates(map[string]interface{}{
		"otp_hash":   hash,
		"otp_expiry": expiry,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *accountRepository) MarkVerified(ctx context.Context, id, otpHash string) error {
	res := r.db.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND otp_hash = ? AND is_verified = ?", id, otpHash, false).
		Updates(map[string]interface{}{
			"is_verified": true,
			"otp_hash":    nil,
			"otp_expiry":  nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

func (r *accountRepository) first(q *gorm.DB) (*model.Account, error) {
	var account model.Account
	if err := q.First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// duplicateFromMessage picks the offending field out of a driver's
// duplicate-key message, which names the violated index: "phone_1" on Mongo,
// "idx_accounts_phone" on MySQL.
func duplicateFromMessage(msg string) *apperrors.DuplicateError {
	if strings.Contains(msg, "index: phone_1") || strings.Contains(msg, "idx_accounts_phone") {
		return &apperrors.DuplicateError{Field: "phone"}
	}
	return &apperrors.DuplicateError{Field: "email"}
}
