package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	apperrors "candlux/internal/errors"
)

var accountColumns = []string{
	"id", "full_name", "email", "phone", "password_hash", "is_verified",
	"otp_hash", "otp_expiry", "role", "created_at", "updated_at",
}

func newGormRepo(t *testing.T) (AccountRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return NewAccountRepository(gdb), mock
}

func TestAccountRepository_FindByEmail(t *testing.T) {
	repo, mock := newGormRepo(t)
	now := time.Now()
	expiry := now.Add(10 * time.Minute)

	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow("id-1", "Test", "a@x.com", "555", "hash", false, "otp-hash", expiry, "user", now, now))

	acc, err := repo.FindByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "id-1", acc.ID)
	require.NotNil(t, acc.OTPHash)
	assert.Equal(t, "otp-hash", *acc.OTPHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_FindByEmailOrPhone_NotFound(t *testing.T) {
	repo, mock := newGormRepo(t)

	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows(accountColumns))
	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE phone = \\?").
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err := repo.FindByEmailOrPhone(context.Background(), "a@x.com", "555")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_FindByEmailOrPhone_EmailFirst(t *testing.T) {
	repo, mock := newGormRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `accounts` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows(accountColumns).
			AddRow("id-a", "A", "a@x.com", "111", "hash", true, nil, nil, "user", now, now))

	acc, err := repo.FindByEmailOrPhone(context.Background(), "a@x.com", "555")
	require.NoError(t, err)
	assert.Equal(t, "id-a", acc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_CreateDuplicatePhone(t *testing.T) {
	repo, mock := newGormRepo(t)

	mock.ExpectExec("INSERT INTO `accounts`").
		WillReturnError(&mysqldriver.MySQLError{
			Number:  1062,
			Message: "Duplicate entry '555' for key 'accounts.idx_accounts_phone'",
		})

	err := repo.Create(context.Background(), newAccount("a@x.com", "555"))
	var dup *apperrors.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "phone", dup.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_ReplaceOTP(t *testing.T) {
	tests := []struct {
		name     string
		prev     *string
		query    string
		affected int64
		wantErr  error
	}{
		{"first otp", nil, "UPDATE `accounts` SET .* WHERE id = \\? AND otp_hash IS NULL", 1, nil},
		{"replace", strPtr("old"), "UPDATE `accounts` SET .* WHERE id = \\? AND otp_hash = \\?", 1, nil},
		{"lost race", strPtr("old"), "UPDATE `accounts` SET .* WHERE id = \\? AND otp_hash = \\?", 0, apperrors.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newGormRepo(t)
			mock.ExpectExec(tt.query).WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.ReplaceOTP(context.Background(), "id-1", tt.prev, "new", time.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAccountRepository_MarkVerified(t *testing.T) {
	repo, mock := newGormRepo(t)

	mock.ExpectExec("UPDATE `accounts` SET .* WHERE id = \\? AND otp_hash = \\? AND is_verified = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkVerified(context.Background(), "id-1", "hash"))

	mock.ExpectExec("UPDATE `accounts` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkVerified(context.Background(), "id-1", "hash"), apperrors.ErrConflict)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string {
	return &s
}
