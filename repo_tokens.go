package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccessTokens records bearer tokens minted at login for auditing.
type AccessTokens interface {
	Track(ctx context.Context, record *AccessToken) (*AccessToken, error)
	ListByUser(ctx context.Context, userID int64) ([]*AccessToken, error)
	DeleteByUserTx(ctx context.Context, tx bun.IDB, userID int64) error
}

type accessTokens struct {
	repository.Repository[*AccessToken]
	db *bun.DB
}

var _ AccessTokens = (*accessTokens)(nil)

func NewAccessTokensRepository(db *bun.DB) AccessTokens {
	repo := repository.NewRepository(db, repository.ModelHandlers[*AccessToken]{
		NewRecord: func() *AccessToken { return &AccessToken{} },
		GetID: func(record *AccessToken) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *AccessToken, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &accessTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *accessTokens) Track(ctx context.Context, record *AccessToken) (*AccessToken, error) {
	if record == nil {
		return nil, goerrors.New("access token record must not be nil", goerrors.CategoryInternal)
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.TokenType == "" {
		record.TokenType = TokenTypeBearer
	}

	created, err := r.Create(ctx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track access token")
	}
	return created, nil
}

func (r *accessTokens) ListByUser(ctx context.Context, userID int64) ([]*AccessToken, error) {
	var records []*AccessToken
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("issued_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list access tokens")
	}
	return records, nil
}

func (r *accessTokens) DeleteByUserTx(ctx context.Context, tx bun.IDB, userID int64) error {
	_, err := tx.NewDelete().
		Model((*AccessToken)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete access tokens")
	}
	return nil
}
