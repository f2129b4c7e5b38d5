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

func TestChangePasswordHandler(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepoManager()
	sink := &MockActivitySink{}

	user := &identity.User{ID: 7, Email: "user@example.com", Enabled: true, PasswordHash: "old-hash"}

	repo.users.On("GetByEmailTx", mock.Anything, mock.Anything, "user@example.com").
		Return(user, nil).Once()
	repo.passcodes.On("FindActiveTx", mock.Anything, mock.Anything, int64(7), "A1B2C3", mock.Anything).
		Return(&identity.Passcode{Code: "A1B2C3", UserID: 7}, nil).Once()
	repo.users.On("UpdateTx", mock.Anything, mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
		return u.PasswordHash != "old-hash" && u.PasswordHash != "new-password-123"
	})).Return(user, nil).Once()
	repo.passcodes.On("InvalidateTx", mock.Anything, mock.Anything, int64(7)).
		Return(nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt identity.ActivityEvent) bool {
		return evt.EventType == identity.ActivityEventPasswordChanged && evt.UserID == "7"
	})).Return(nil).Once()

	handler := identity.NewChangePasswordHandler(repo).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	err := handler.Execute(ctx, identity.ChangePasswordMessage{
		Email:           "user@example.com",
		Code:            "A1B2C3",
		NewPassword:     "new-password-123",
		ConfirmPassword: "new-password-123",
	})
	require.NoError(t, err)

	repo.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestChangePasswordHandlerConfirmationMismatch(t *testing.T) {
	repo := newFakeRepoManager()

	handler := identity.NewChangePasswordHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(context.Background(), identity.ChangePasswordMessage{
		Email:           "user@example.com",
		Code:            "A1B2C3",
		NewPassword:     "new-password-123",
		ConfirmPassword: "something-else",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, identity.TextCodePasswordMismatch, richErr.TextCode)

	repo.users.AssertNotCalled(t, "GetByEmailTx", mock.Anything, mock.Anything, mock.Anything)
	repo.passcodes.AssertNotCalled(t, "FindActiveTx",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePasswordHandlerBadCodeKeepsPassword(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepoManager()

	user := &identity.User{ID: 7, Email: "user@example.com", PasswordHash: "old-hash"}

	repo.users.On("GetByEmailTx", mock.Anything, mock.Anything, "user@example.com").
		Return(user, nil).Once()
	repo.passcodes.On("FindActiveTx", mock.Anything, mock.Anything, int64(7), "WRONG0", mock.Anything).
		Return(nil, identity.ErrPasscodeInvalid).Once()

	handler := identity.NewChangePasswordHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, identity.ChangePasswordMessage{
		Email:           "user@example.com",
		Code:            "WRONG0",
		NewPassword:     "new-password-123",
		ConfirmPassword: "new-password-123",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, identity.TextCodePasscodeInvalid, richErr.TextCode)

	repo.users.AssertNotCalled(t, "UpdateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePasswordHandlerUnknownEmail(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepoManager()

	repo.users.On("GetByEmailTx", mock.Anything, mock.Anything, "ghost@example.com").
		Return(nil, goerrors.New("record not found", goerrors.CategoryNotFound)).Once()

	handler := identity.NewChangePasswordHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, identity.ChangePasswordMessage{
		Email:           "ghost@example.com",
		Code:            "A1B2C3",
		NewPassword:     "new-password-123",
		ConfirmPassword: "new-password-123",
	})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, identity.TextCodeIdentityNotFound, richErr.TextCode)
}
