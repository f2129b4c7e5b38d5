package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager bundles the identity repositories with transaction
// support so command handlers can run multi-repo work atomically.
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Passcodes() Passcodes
	AccessTokens() AccessTokens
}

type mngr struct {
	db           *bun.DB
	users        Users
	passcodes    Passcodes
	accessTokens AccessTokens
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:           db,
		users:        NewUsersRepository(db),
		passcodes:    NewPasscodesRepository(db),
		accessTokens: NewAccessTokensRepository(db),
	}
}

func (m mngr) Validate() error {
	repos := map[string]any{
		"users":        m.users,
		"passcodes":    m.passcodes,
		"accessTokens": m.accessTokens,
	}
	for name, repo := range repos {
		if repo == nil {
			return errors.New("repository " + name + " should be initialized")
		}
	}
	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Passcodes() Passcodes {
	return m.passcodes
}

func (m mngr) AccessTokens() AccessTokens {
	return m.accessTokens
}
