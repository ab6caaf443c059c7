// Package crypto wraps password hashing for the identity service.
package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordCost is the bcrypt work factor for new digests.
const passwordCost = 12

// HashPassword derives a salted bcrypt digest from a plaintext password.
func HashPassword(plain string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// ComparePassword checks plaintext against a stored digest. The comparison
// is constant-time within bcrypt. Returns bcrypt.ErrMismatchedHashAndPassword
// on mismatch.
func ComparePassword(digest, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
}
