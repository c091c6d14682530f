// Package password hashes and verifies room passwords.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher produces salted one-way password hashes.
type Hasher interface {
	Hash(password string) (string, error)
	// Verify never fails loudly: a malformed hash or any comparison error
	// reads as a mismatch.
	Verify(password, hash string) bool
}

// MaxLength is the longest password bcrypt can hash without truncating it.
const MaxLength = 72

// BcryptHasher is the production Hasher.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using cost, clamped to bcrypt's valid range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{Cost: cost}
}

func (b *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (b *BcryptHasher) Verify(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	// bcrypt compares only the first MaxLength bytes, so a longer candidate
	// could match a hash of its prefix.
	if len(password) > MaxLength {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
