package password_test

import (
	"crypton/backend/internal/password"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_VerifyRoundTrip(t *testing.T) {
	h := password.NewBcryptHasher(bcrypt.MinCost)

	for _, pw := range []string{"secret1", "a", "pässwörd with spaces", strings.Repeat("x", 72)} {
		hash, err := h.Hash(pw)
		require.NoError(t, err)

		assert.True(t, h.Verify(pw, hash), "password %q should verify", pw)
		assert.False(t, h.Verify(pw+"!", hash))
		assert.False(t, h.Verify("wrong", hash))
	}
}

func TestBcryptHasher_FreshSalt(t *testing.T) {
	h := password.NewBcryptHasher(bcrypt.MinCost)

	first, err := h.Hash("secret1")
	require.NoError(t, err)
	second, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "identical passwords must not produce identical hashes")
	assert.NotContains(t, first, "secret1")
}

func TestBcryptHasher_MalformedInput(t *testing.T) {
	h := password.NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.False(t, h.Verify("secret1", "not-a-bcrypt-hash"))
		assert.False(t, h.Verify("secret1", ""))
		assert.False(t, h.Verify("", hash))
		assert.False(t, h.Verify("secret1", hash[:len(hash)-5]))
	})
}

func TestBcryptHasher_TooLong(t *testing.T) {
	h := password.NewBcryptHasher(bcrypt.MinCost)

	_, err := h.Hash(strings.Repeat("x", password.MaxLength+1))
	assert.Error(t, err)
}

func TestBcryptHasher_RejectsExtendedPrefix(t *testing.T) {
	h := password.NewBcryptHasher(bcrypt.MinCost)
	stored := strings.Repeat("a", password.MaxLength)
	hash, err := h.Hash(stored)
	require.NoError(t, err)

	assert.True(t, h.Verify(stored, hash))
	assert.False(t, h.Verify(stored+"b", hash))
	assert.False(t, h.Verify(stored+strings.Repeat("z", 100), hash))
}

func TestNewBcryptHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.MinCost, password.NewBcryptHasher(1).Cost)
	assert.Equal(t, bcrypt.MaxCost, password.NewBcryptHasher(99).Cost)
	assert.Equal(t, 10, password.NewBcryptHasher(10).Cost)
}
