package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

// PasswordHasher hashes passwords with bcrypt. When a pepper is configured
// the password is first run through HMAC-SHA256 keyed with it, which also
// keeps long passwords under bcrypt's 72 byte limit.
type PasswordHasher struct {
	pepper []byte
	cost   int
}

// NewPasswordHasher creates a hasher. An empty pepper disables peppering.
func NewPasswordHasher(pepper string) *PasswordHasher {
	return &PasswordHasher{pepper: []byte(pepper), cost: bcryptCost}
}

// Hash returns the bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(h.prepare(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Compare reports whether password matches hash.
func (h *PasswordHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), h.prepare(password)) == nil
}

func (h *PasswordHasher) prepare(password string) []byte {
	if len(h.pepper) == 0 {
		return []byte(password)
	}
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	return []byte(base64.RawStdEncoding.EncodeToString(mac.Sum(nil)))
}
