package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"time"
)

// Digits is the length of an issued code.
const Digits = 6

var codeSpace = big.NewInt(1_000_000)

// Code is a freshly issued one-time password. Plain is handed to the mailer
// and never stored.
type Code struct {
	Plain  string
	Hash   string
	Expiry time.Time
}

// Issuer draws codes from a random source.
type Issuer struct {
	rand io.Reader
}

// NewIssuer returns an Issuer backed by crypto/rand.
func NewIssuer() *Issuer {
	return &Issuer{rand: rand.Reader}
}

// NewIssuerWithReader is used by tests to make codes deterministic.
func NewIssuerWithReader(r io.Reader) *Issuer {
	return &Issuer{rand: r}
}

// Issue returns a code valid until now+ttl.
func (i *Issuer) Issue(now time.Time, ttl time.Duration) (Code, error) {
	n, err := rand.Int(i.rand, codeSpace)
	if err != nil {
		return Code{}, fmt.Errorf("draw otp: %w", err)
	}
	plain := fmt.Sprintf("%0*d", Digits, n.Int64())
	return Code{
		Plain:  plain,
		Hash:   Hash(plain),
		Expiry: now.Add(ttl),
	}, nil
}

// Hash returns the hex SHA-256 of code.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether code hashes to hash.
func Matches(hash, code string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(Hash(code))) == 1
}

// Expired reports whether a code with the given expiry is no longer
// acceptable at now. The expiry instant itself is still valid.
func Expired(expiry, now time.Time) bool {
	return now.After(expiry)
}
