package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type DeleteAccountMessage struct {
	Email    string `json:"email" example:"user@example.com" doc:"Account email"`
	Password string `json:"password" example:"some_secret_word" doc:"Password confirming the deletion"`
}

type DeleteAccountHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewDeleteAccountHandler creates a handler with sane defaults.
func NewDeleteAccountHandler(repo RepositoryManager) *DeleteAccountHandler {
	return &DeleteAccountHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit deletion events.
func (h *DeleteAccountHandler) WithActivitySink(sink ActivitySink) *DeleteAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *DeleteAccountHandler) WithLogger(logger Logger) *DeleteAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Execute removes the account and everything owned by it (passcodes and
// access token records) in one transaction.
func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityNotFound.WithMetadata(map[string]any{
					"email": event.Email,
				})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve user")
		}

		if err := ComparePasswordAndHash(event.Password, user.PasswordHash); err != nil {
			return err
		}

		if err := h.repo.Passcodes().InvalidateTx(ctx, tx, user.ID); err != nil {
			return err
		}

		if err := h.repo.AccessTokens().DeleteByUserTx(ctx, tx, user.ID); err != nil {
			return err
		}

		if err := h.repo.Users().DeleteTx(ctx, tx, user); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete account")
	}

	h.recordActivity(ctx, user)

	return nil
}

func (h *DeleteAccountHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventAccountDeleted,
		Actor: ActorRef{
			ID:   formatUserID(user.ID),
			Type: "user",
		},
		UserID:     formatUserID(user.ID),
		FromStatus: user.Status(),
		ToStatus:   UserStatusDeleted,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during account deletion: %v", err)
	}
}
