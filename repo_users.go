package identity

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Users is the store for user records. IDs are database assigned integers,
// email is the natural key used by every lifecycle operation.
type Users interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	EmailTakenTx(ctx context.Context, tx bun.IDB, email string) (bool, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	DeleteTx(ctx context.Context, tx bun.IDB, record *User) error
}

type users struct {
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	return &users{db: db}
}

func (a *users) GetByID(ctx context.Context, id int64) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"id": id,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user by id")
	}
	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().WithMetadata(map[string]any{
				"email": email,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user by email")
	}
	return record, nil
}

func (a *users) EmailTakenTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Exists(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email availability")
	}
	return exists, nil
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	record.Email = normalizeEmail(record.Email)
	if _, err := tx.NewInsert().Model(record).Returning("*").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken.WithMetadata(map[string]any{
				"email": record.Email,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}
	return record, nil
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	record.Email = normalizeEmail(record.Email)
	if _, err := tx.NewUpdate().Model(record).WherePK().Returning("*").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken.WithMetadata(map[string]any{
				"email": record.Email,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}
	return record, nil
}

func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, record *User) error {
	if _, err := tx.NewDelete().Model(record).WherePK().Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
