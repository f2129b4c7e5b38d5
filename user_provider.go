package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// UserStore is the slice of the user repository the provider needs
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// UserProvider resolves identities from the user store
type UserProvider struct {
	store  UserStore
	logger Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserStore) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user, compare the password, and return identity
func (u UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, identifier)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound.WithMetadata(map[string]any{
				"email": identifier,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, err
	}

	return identityFromUser(user), nil
}

func (u UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, identifier)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound.WithMetadata(map[string]any{
				"email": identifier,
			})
		}
		return nil, err
	}

	return identityFromUser(user), nil
}

type authIdentity struct {
	id      string
	email   string
	enabled bool
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Enabled() bool {
	return a.enabled
}

var _ Identity = authIdentity{}

func identityFromUser(user *User) authIdentity {
	return authIdentity{
		id:      formatUserID(user.ID),
		email:   user.Email,
		enabled: user.Enabled,
	}
}
