package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func hashFor(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestNewAccountStore(t *testing.T) {
	hash := hashFor(t, "s3cret")

	t.Run("parses entries", func(t *testing.T) {
		store, err := NewAccountStore([]string{"Shopper@Example.com:" + hash})
		require.NoError(t, err)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("empty list", func(t *testing.T) {
		store, err := NewAccountStore(nil)
		require.NoError(t, err)
		assert.Equal(t, 0, store.Len())
	})

	for _, bad := range []string{"no-separator", ":" + hash, "a@example.com:", "a@example.com:plaintext"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := NewAccountStore([]string{bad})
			assert.Error(t, err)
		})
	}
}

func TestAccountStore_Verify(t *testing.T) {
	store, err := NewAccountStore([]string{"shopper@example.com:" + hashFor(t, "s3cret")})
	require.NoError(t, err)

	email, err := store.Verify(" SHOPPER@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "shopper@example.com", email)

	_, err = store.Verify("shopper@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Verify("nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
