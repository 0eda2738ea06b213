package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the access level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates a role name. An empty name means RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Account represents a registered storefront customer or administrator.
// The same struct is persisted as a Mongo document and as a MySQL row.
type Account struct {
	ID           string     `json:"id" bson:"_id" gorm:"type:char(36);primaryKey"`
	FullName     string     `json:"fullName" bson:"fullName" gorm:"size:255;not null"`
	Email        string     `json:"email" bson:"email" gorm:"uniqueIndex;size:255;not null"`
	Phone        string     `json:"phone" bson:"phone" gorm:"uniqueIndex;size:32;not null"`
	PasswordHash string     `json:"-" bson:"password" gorm:"size:255;not null"` // Never expose in JSON
	IsVerified   bool       `json:"isVerified" bson:"isVerified" gorm:"default:false;index"`
	OTPHash      *string    `json:"-" bson:"otp,omitempty" gorm:"column:otp_hash;size:64"`
	OTPExpiry    *time.Time `json:"-" bson:"otpExpiry,omitempty" gorm:"column:otp_expiry"`
	Role         Role       `json:"role" bson:"role" gorm:"size:16;default:'user'"`
	CreatedAt    time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// HasOTP reports whether OTP material is present.
func (a *Account) HasOTP() bool {
	return a.OTPHash != nil && a.OTPExpiry != nil
}

// SetOTP stores a freshly issued hash and its expiry.
func (a *Account) SetOTP(hash string, expiry time.Time) {
	a.OTPHash = &hash
	a.OTPExpiry = &expiry
}

// MarkVerified flips the account to verified and drops the OTP material.
func (a *Account) MarkVerified() {
	a.IsVerified = true
	a.OTPHash = nil
	a.OTPExpiry = nil
}
