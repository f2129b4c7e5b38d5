package identity_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// fakeRepoManager implements identity.RepositoryManager over mocked
// repositories. RunInTx executes the closure with a zero transaction so
// handler logic runs against the mocks and errors propagate unchanged.
type fakeRepoManager struct {
	users     *MockUsers
	passcodes *MockPasscodes
	tokens    *MockAccessTokens
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:     &MockUsers{},
		passcodes: &MockPasscodes{},
		tokens:    &MockAccessTokens{},
	}
}

func (f *fakeRepoManager) Validate() error {
	return nil
}

func (f *fakeRepoManager) MustValidate() {}

func (f *fakeRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	var tx bun.Tx
	return fn(ctx, tx)
}

func (f *fakeRepoManager) Users() identity.Users {
	return f.users
}

func (f *fakeRepoManager) Passcodes() identity.Passcodes {
	return f.passcodes
}

func (f *fakeRepoManager) AccessTokens() identity.AccessTokens {
	return f.tokens
}

func (f *fakeRepoManager) AssertExpectations(t mock.TestingT) {
	f.users.AssertExpectations(t)
	f.passcodes.AssertExpectations(t)
	f.tokens.AssertExpectations(t)
}

// MockUsers implements identity.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*identity.User, error) {
	args := m.Called(ctx, tx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) EmailTakenTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	args := m.Called(ctx, tx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *identity.User) (*identity.User, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *identity.User) (*identity.User, error) {
	args := m.Called(ctx, tx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUsers) DeleteTx(ctx context.Context, tx bun.IDB, record *identity.User) error {
	args := m.Called(ctx, tx, record)
	return args.Error(0)
}

// MockPasscodes implements identity.Passcodes
type MockPasscodes struct {
	mock.Mock
}

func (m *MockPasscodes) IssueTx(ctx context.Context, tx bun.IDB, user *identity.User, ttl time.Duration) (*identity.Passcode, error) {
	args := m.Called(ctx, tx, user, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Passcode), args.Error(1)
}

func (m *MockPasscodes) FindActiveTx(ctx context.Context, tx bun.IDB, userID int64, code string, now time.Time) (*identity.Passcode, error) {
	args := m.Called(ctx, tx, userID, code, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Passcode), args.Error(1)
}

func (m *MockPasscodes) InvalidateTx(ctx context.Context, tx bun.IDB, userID int64) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockAccessTokens implements identity.AccessTokens
type MockAccessTokens struct {
	mock.Mock
}

func (m *MockAccessTokens) Track(ctx context.Context, record *identity.AccessToken) (*identity.AccessToken, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.AccessToken), args.Error(1)
}

func (m *MockAccessTokens) ListByUser(ctx context.Context, userID int64) ([]*identity.AccessToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.AccessToken), args.Error(1)
}

func (m *MockAccessTokens) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID int64) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockActivitySink implements identity.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event identity.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockMailer implements identity.PasscodeMailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendPasscode(ctx context.Context, email, code string, expiresAt time.Time) error {
	args := m.Called(ctx, email, code, expiresAt)
	return args.Error(0)
}

func testConfig() *identity.EnvConfig {
	return &identity.EnvConfig{
		SigningKey:      "test-signing-key-please-rotate",
		SigningMethod:   "HS512",
		ContextKey:      "user",
		TokenExpiration: 1,
		TokenLookup:     "header:Authorization",
		AuthScheme:      "Bearer",
		Issuer:          "identity-test",
	}
}
