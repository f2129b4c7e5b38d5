package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ChangePasswordMessage struct {
	Email           string `json:"email" example:"user@example.com" doc:"Account email"`
	Code            string `json:"otp" example:"A1B2C3" doc:"One-time passcode from the recovery mail"`
	NewPassword     string `json:"new_password" example:"some_secret_word" doc:"New password"`
	ConfirmPassword string `json:"confirm_password" example:"some_secret_word" doc:"Must match new_password"`
}

type ChangePasswordHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewChangePasswordHandler creates a handler with sane defaults.
func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit password change events.
func (h *ChangePasswordHandler) WithActivitySink(sink ActivitySink) *ChangePasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Execute replaces the account password after verifying the recovery
// passcode. A mismatched confirmation fails before any lookup so the
// passcode stays usable.
func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	if event.NewPassword != event.ConfirmPassword {
		return ErrPasswordMismatch
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	passwordHash, err := HashPassword(event.NewPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	var user *User

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
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

		passcode, err := h.repo.Passcodes().FindActiveTx(ctx, tx, user.ID, event.Code, time.Now())
		if err != nil {
			return err
		}

		user.PasswordHash = passwordHash
		if _, err := h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return err
		}

		if err := h.repo.Passcodes().InvalidateTx(ctx, tx, passcode.UserID); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to change password")
	}

	h.recordActivity(ctx, user)

	return nil
}

func (h *ChangePasswordHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventPasswordChanged,
		Actor: ActorRef{
			ID:   formatUserID(user.ID),
			Type: "user",
		},
		UserID:     formatUserID(user.ID),
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password change: %v", err)
	}
}
