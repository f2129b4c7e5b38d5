package identity_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestController(repo *fakeRepoManager) *identity.IdentityController {
	return identity.NewIdentityController(
		identity.WithControllerRepo(repo),
		identity.WithControllerConfig(testConfig()),
		identity.WithControllerLogger(testLogger{}),
	)
}

func bindPayload(ctx *router.MockContext, fill func(any)) {
	ctx.On("Bind", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		fill(args.Get(0))
	})
}

func TestControllerRegisterPost(t *testing.T) {
	repo := newFakeRepoManager()
	ctrl := newTestController(repo)

	repo.users.On("EmailTakenTx", mock.Anything, mock.Anything, "user@example.com").
		Return(false, nil).Once()
	repo.users.On("CreateTx", mock.Anything, mock.Anything, mock.Anything).
		Return(&identity.User{ID: 7, Email: "user@example.com"}, nil).Once()
	repo.passcodes.On("IssueTx", mock.Anything, mock.Anything, mock.Anything, identity.RegistrationPasscodeTTL).
		Return(&identity.Passcode{Code: "A1B2C3", UserID: 7, ExpiresAt: time.Now().Add(identity.RegistrationPasscodeTTL)}, nil).Once()

	var responded identity.UserResponse
	ctx := router.NewMockContext()
	bindPayload(ctx, func(p any) {
		payload := p.(*identity.RegistrationPayload)
		payload.Email = "user@example.com"
		payload.Password = "password12345"
	})
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", http.StatusCreated, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		responded = args.Get(1).(identity.UserResponse)
	})

	require.NoError(t, ctrl.RegisterPost(ctx))
	assert.Equal(t, int64(7), responded.ID)
	assert.Equal(t, "user@example.com", responded.Email)
	assert.False(t, responded.Enabled)

	repo.AssertExpectations(t)
}

func TestControllerRegisterPostRejectsInvalidPayload(t *testing.T) {
	repo := newFakeRepoManager()
	ctrl := newTestController(repo)

	var body identity.APIErrorResponse
	ctx := router.NewMockContext()
	bindPayload(ctx, func(p any) {
		payload := p.(*identity.RegistrationPayload)
		payload.Email = "not-an-email"
		payload.Password = "password12345"
	})
	ctx.On("OriginalURL").Return("/api/auth/register")
	ctx.On("JSON", http.StatusBadRequest, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		body = args.Get(1).(identity.APIErrorResponse)
	})

	require.NoError(t, ctrl.RegisterPost(ctx))
	assert.Equal(t, http.StatusBadRequest, body.Status)

	repo.users.AssertNotCalled(t, "CreateTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestControllerActivatePostCollapsesPasscodeFailures(t *testing.T) {
	repo := newFakeRepoManager()
	ctrl := newTestController(repo)

	repo.users.On("GetByEmailTx", mock.Anything, mock.Anything, "user@example.com").
		Return(&identity.User{ID: 7, Email: "user@example.com"}, nil).Once()
	repo.passcodes.On("FindActiveTx", mock.Anything, mock.Anything, int64(7), "WRONG0", mock.Anything).
		Return(nil, identity.ErrPasscodeExpired).Once()

	var body identity.APIErrorResponse
	ctx := router.NewMockContext()
	bindPayload(ctx, func(p any) {
		payload := p.(*identity.ActivationPayload)
		payload.Email = "user@example.com"
		payload.Code = "WRONG0"
	})
	ctx.On("Context").Return(context.Background())
	ctx.On("OriginalURL").Return("/api/auth/activate")
	ctx.On("JSON", http.StatusBadRequest, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		body = args.Get(1).(identity.APIErrorResponse)
	})

	require.NoError(t, ctrl.ActivatePost(ctx))
	assert.Equal(t, "Invalid or expired OTP", body.Message)
}

func TestControllerLoginPost(t *testing.T) {
	repo := newFakeRepoManager()
	ctrl := newTestController(repo)

	hash, err := identity.HashPassword("password12345")
	require.NoError(t, err)

	repo.users.On("GetByEmail", mock.Anything, "user@example.com").
		Return(&identity.User{ID: 7, Email: "user@example.com", Enabled: true, PasswordHash: hash}, nil).Once()
	repo.tokens.On("Track", mock.Anything, mock.Anything).
		Return(&identity.AccessToken{}, nil).Once()

	var responded identity.LoginResponse
	ctx := router.NewMockContext()
	bindPayload(ctx, func(p any) {
		payload := p.(*identity.LoginPayload)
		payload.Email = "user@example.com"
		payload.Password = "password12345"
	})
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", http.StatusOK, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		responded = args.Get(1).(identity.LoginResponse)
	})

	require.NoError(t, ctrl.LoginPost(ctx))
	assert.NotEmpty(t, responded.AccessToken)
	assert.Equal(t, identity.TokenTypeBearer, responded.TokenType)

	claims, err := ctrl.TokenService.Validate(responded.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Subject())
}

func TestControllerLoginPostNotActivated(t *testing.T) {
	repo := newFakeRepoManager()
	ctrl := newTestController(repo)

	hash, err := identity.HashPassword("password12345")
	require.NoError(t, err)

	repo.users.On("GetByEmail", mock.Anything, "user@example.com").
		Return(&identity.User{ID: 7, Email: "user@example.com", Enabled: false, PasswordHash: hash}, nil).Once()

	var body identity.APIErrorResponse
	ctx := router.NewMockContext()
	bindPayload(ctx, func(p any) {
		payload := p.(*identity.LoginPayload)
		payload.Email = "user@example.com"
		payload.Password = "password12345"
	})
	ctx.On("Context").Return(context.Background())
	ctx.On("OriginalURL").Return("/api/auth/login")
	ctx.On("JSON", http.StatusBadRequest, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		body = args.Get(1).(identity.APIErrorResponse)
	})

	require.NoError(t, ctrl.LoginPost(ctx))
	assert.Equal(t, http.StatusBadRequest, body.Status)
	assert.Equal(t, "account is not activated", body.Message)
}

func TestControllerValidateTokenPost(t *testing.T) {
	repo := newFakeRepoManager()
	ctrl := newTestController(repo)

	token, err := ctrl.TokenService.Generate("user@example.com")
	require.NoError(t, err)

	repo.users.On("GetByEmail", mock.Anything, "user@example.com").
		Return(&identity.User{ID: 7, Email: "user@example.com", Enabled: true}, nil).Once()

	var responded identity.UserResponse
	ctx := router.NewMockContext()
	ctx.HeadersM["Authorization"] = "Bearer " + token
	ctx.On("Header", "Authorization").Return("Bearer " + token)
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", http.StatusOK, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		responded = args.Get(1).(identity.UserResponse)
	})

	require.NoError(t, ctrl.ValidateTokenPost(ctx))
	assert.Equal(t, int64(7), responded.ID)
	assert.True(t, responded.Enabled)
}

func TestControllerValidateTokenPostMissingHeader(t *testing.T) {
	repo := newFakeRepoManager()
	ctrl := newTestController(repo)

	var body identity.APIErrorResponse
	ctx := router.NewMockContext()
	ctx.On("Header", "Authorization").Return("")
	ctx.On("OriginalURL").Return("/api/auth/validateToken")
	ctx.On("JSON", http.StatusBadRequest, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		body = args.Get(1).(identity.APIErrorResponse)
	})

	require.NoError(t, ctrl.ValidateTokenPost(ctx))
	assert.Equal(t, http.StatusBadRequest, body.Status)
}

func TestControllerDeleteRefusesOtherAccount(t *testing.T) {
	repo := newFakeRepoManager()
	ctrl := newTestController(repo)

	token, err := ctrl.TokenService.Generate("user@example.com")
	require.NoError(t, err)
	claims, err := ctrl.TokenService.Validate(token)
	require.NoError(t, err)

	var body identity.APIErrorResponse
	ctx := router.NewMockContext()
	bindPayload(ctx, func(p any) {
		payload := p.(*identity.DeleteAccountPayload)
		payload.Email = "someone-else@example.com"
		payload.Password = "password12345"
	})
	ctx.LocalsMock["user"] = claims
	ctx.On("Locals", "user").Return(claims)
	ctx.On("OriginalURL").Return("/api/auth/delete")
	ctx.On("JSON", http.StatusForbidden, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		body = args.Get(1).(identity.APIErrorResponse)
	})

	require.NoError(t, ctrl.DeleteAccountHandler(ctx))
	assert.Equal(t, http.StatusForbidden, body.Status)

	repo.users.AssertNotCalled(t, "GetByEmailTx", mock.Anything, mock.Anything, mock.Anything)
}

func TestControllerRequiresRepoAndConfig(t *testing.T) {
	assert.Panics(t, func() {
		identity.NewIdentityController(identity.WithControllerConfig(testConfig()))
	})
	assert.Panics(t, func() {
		identity.NewIdentityController(identity.WithControllerRepo(newFakeRepoManager()))
	})
}
