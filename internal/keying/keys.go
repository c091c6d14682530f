// Package keying generates room keys and encrypts room messages with them.
//
// A room owns 32 random "raw" key bytes. The raw key is what gets handed to
// room members (base64 encoded); the AES key actually used by the cipher is the
// SHA-256 digest of the raw key.
package keying

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// RawKeySize is the number of random bytes generated per room.
const RawKeySize = 32

// ErrEmptyKey is returned by DecodeKey for blank input.
var ErrEmptyKey = errors.New("empty room key")

// GenerateKey returns RawKeySize cryptographically random bytes.
func GenerateKey() ([]byte, error) {
	key := make([]byte, RawKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate room key: %w", err)
	}
	return key, nil
}

// DeriveKey hashes raw key material of any length down to an AES-256 key.
func DeriveKey(raw []byte) []byte {
	sum := sha256.Sum256(raw)
	return sum[:]
}

// EncodeKey renders raw key bytes in their transport form.
func EncodeKey(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// DecodeKey parses a transport-form key.
func DecodeKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, ErrEmptyKey
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode room key: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyKey
	}
	return raw, nil
}
