package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword_Roundtrip(t *testing.T) {
	digest, err := HashPassword("secret123")
	require.NoError(t, err)
	require.NotEmpty(t, digest)
	assert.NotEqual(t, "secret123", digest)

	require.NoError(t, ComparePassword(digest, "secret123"))
}

func TestComparePassword_Mismatch(t *testing.T) {
	digest, err := HashPassword("secret123")
	require.NoError(t, err)

	err = ComparePassword(digest, "wrong")
	require.ErrorIs(t, err, bcrypt.ErrMismatchedHashAndPassword)
}

func TestHashPassword_Cost(t *testing.T) {
	digest, err := HashPassword("secret123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, passwordCost, cost)
}

func TestHashPassword_SaltedDigestsDiffer(t *testing.T) {
	d1, err := HashPassword("secret123")
	require.NoError(t, err)
	d2, err := HashPassword("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}
