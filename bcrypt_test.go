package identity_test

import (
	"testing"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := identity.HashPassword("password12345")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "password12345", hash)

	assert.NoError(t, identity.ComparePasswordAndHash("password12345", hash))
}

func TestHashPasswordRejectsEmptyString(t *testing.T) {
	_, err := identity.HashPassword("")
	assert.ErrorIs(t, err, identity.ErrNoEmptyString)
}

func TestComparePasswordAndHashMismatch(t *testing.T) {
	hash, err := identity.HashPassword("password12345")
	require.NoError(t, err)

	err = identity.ComparePasswordAndHash("not-the-password", hash)
	assert.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)
}
