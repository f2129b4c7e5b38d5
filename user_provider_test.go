package identity_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()
	store := &MockUsers{}

	hash, err := identity.HashPassword("password12345")
	require.NoError(t, err)

	store.On("GetByEmail", mock.Anything, "user@example.com").
		Return(&identity.User{ID: 7, Email: "user@example.com", Enabled: true, PasswordHash: hash}, nil).Once()

	provider := identity.NewUserProvider(store).WithLogger(testLogger{})

	id, err := provider.VerifyIdentity(ctx, "user@example.com", "password12345")
	require.NoError(t, err)
	assert.Equal(t, "7", id.ID())
	assert.Equal(t, "user@example.com", id.Email())
	assert.True(t, id.Enabled())

	store.AssertExpectations(t)
}

func TestUserProviderVerifyIdentityWrongPassword(t *testing.T) {
	ctx := context.Background()
	store := &MockUsers{}

	hash, err := identity.HashPassword("password12345")
	require.NoError(t, err)

	store.On("GetByEmail", mock.Anything, "user@example.com").
		Return(&identity.User{ID: 7, Email: "user@example.com", PasswordHash: hash}, nil).Once()

	provider := identity.NewUserProvider(store).WithLogger(testLogger{})

	_, err = provider.VerifyIdentity(ctx, "user@example.com", "not-the-password")
	assert.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)
}

func TestUserProviderVerifyIdentityUnknownEmail(t *testing.T) {
	ctx := context.Background()
	store := &MockUsers{}

	store.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(nil, goerrors.New("record not found", goerrors.CategoryNotFound)).Once()

	provider := identity.NewUserProvider(store).WithLogger(testLogger{})

	_, err := provider.VerifyIdentity(ctx, "ghost@example.com", "password12345")
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, identity.TextCodeIdentityNotFound, richErr.TextCode)
}

func TestUserProviderFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()
	store := &MockUsers{}

	store.On("GetByEmail", mock.Anything, "user@example.com").
		Return(&identity.User{ID: 7, Email: "user@example.com", Enabled: true}, nil).Once()

	provider := identity.NewUserProvider(store)

	id, err := provider.FindIdentityByIdentifier(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", id.Email())
}
