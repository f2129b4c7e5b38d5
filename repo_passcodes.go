package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Passcodes manages one-time codes. A user has at most one usable code at a
// time, issuing a new one always invalidates earlier codes.
type Passcodes interface {
	IssueTx(ctx context.Context, tx bun.IDB, user *User, ttl time.Duration) (*Passcode, error)
	FindActiveTx(ctx context.Context, tx bun.IDB, userID int64, code string, now time.Time) (*Passcode, error)
	InvalidateTx(ctx context.Context, tx bun.IDB, userID int64) error
}

type passcodes struct {
	repository.Repository[*Passcode]
	db *bun.DB
}

var _ Passcodes = (*passcodes)(nil)

func NewPasscodesRepository(db *bun.DB) Passcodes {
	repo := repository.NewRepository(db, repository.ModelHandlers[*Passcode]{
		NewRecord: func() *Passcode { return &Passcode{} },
		GetID: func(record *Passcode) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Passcode, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "code"
		},
	})

	return &passcodes{
		Repository: repo,
		db:         db,
	}
}

// IssueTx replaces any existing codes for the user with a fresh one.
func (r *passcodes) IssueTx(ctx context.Context, tx bun.IDB, user *User, ttl time.Duration) (*Passcode, error) {
	if user == nil || user.ID == 0 {
		return nil, goerrors.New("passcode requires a persisted user", goerrors.CategoryInternal)
	}

	if err := r.InvalidateTx(ctx, tx, user.ID); err != nil {
		return nil, err
	}

	record := &Passcode{
		ID:        uuid.New(),
		Code:      GeneratePasscode(),
		ExpiresAt: time.Now().Add(ttl),
		UserID:    user.ID,
	}

	created, err := r.CreateTx(ctx, tx, record)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue passcode")
	}

	return created, nil
}

// FindActiveTx returns the passcode matching the submitted code for the user.
// A missing code and an expired code surface as distinct errors so callers
// can decide how much to disclose.
func (r *passcodes) FindActiveTx(ctx context.Context, tx bun.IDB, userID int64, code string, now time.Time) (*Passcode, error) {
	record := &Passcode{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrPasscodeInvalid.WithMetadata(map[string]any{
				"user_id": userID,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up passcode")
	}

	if record.Expired(now) {
		return nil, ErrPasscodeExpired.WithMetadata(map[string]any{
			"user_id":    userID,
			"expired_at": record.ExpiresAt,
		})
	}

	return record, nil
}

// InvalidateTx removes every passcode for the user. Deleting codes that do
// not exist is not an error.
func (r *passcodes) InvalidateTx(ctx context.Context, tx bun.IDB, userID int64) error {
	_, err := tx.NewDelete().
		Model((*Passcode)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate passcodes")
	}
	return nil
}
