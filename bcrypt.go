package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a cleartext password with bcrypt.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// ComparePasswordAndHash checks a cleartext password against a stored hash.
// Mismatches return ErrMismatchedHashAndPassword so callers can branch on it.
func ComparePasswordAndHash(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatchedHashAndPassword
	}
	return err
}
