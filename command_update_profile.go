package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type UpdateProfileMessage struct {
	Email           string `json:"email" example:"user@example.com" doc:"Current account email"`
	CurrentPassword string `json:"current_password" example:"some_secret_word" doc:"Password confirming the change"`
	NewEmail        string `json:"new_email,omitempty" example:"new@example.com" doc:"Optional replacement email"`
	NewPassword     string `json:"new_password,omitempty" example:"another_secret" doc:"Optional replacement password"`
	Phone           string `json:"phone_number,omitempty" example:"+15550100123" doc:"Optional replacement phone number"`
}

type UpdateProfileHandler struct {
	repo     RepositoryManager
	states   UserStateMachine
	mailer   PasscodeMailer
	activity ActivitySink
	logger   Logger
}

// NewUpdateProfileHandler creates a handler with sane defaults.
func NewUpdateProfileHandler(repo RepositoryManager) *UpdateProfileHandler {
	return &UpdateProfileHandler{
		repo:     repo,
		states:   NewUserStateMachine(),
		mailer:   noopMailer{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithStateMachine overrides the state machine used when an email change
// forces re-verification.
func (h *UpdateProfileHandler) WithStateMachine(sm UserStateMachine) *UpdateProfileHandler {
	if sm != nil {
		h.states = sm
	}
	return h
}

// WithMailer sets the mailer used to deliver the re-verification passcode.
func (h *UpdateProfileHandler) WithMailer(mailer PasscodeMailer) *UpdateProfileHandler {
	h.mailer = normalizeMailer(mailer)
	return h
}

// WithActivitySink sets the sink used to emit profile events.
func (h *UpdateProfileHandler) WithActivitySink(sink ActivitySink) *UpdateProfileHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *UpdateProfileHandler) WithLogger(logger Logger) *UpdateProfileHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Execute applies profile changes after verifying the current password.
// Changing the email demotes the account to unverified and issues a fresh
// passcode mailed to the new address.
func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateProfileHandler) execute(ctx context.Context, event UpdateProfileMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	phone, err := NormalizePhone(event.Phone)
	if err != nil {
		return nil, err
	}

	var user *User
	var passcode *Passcode
	emailChanged := false

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

		if err := ComparePasswordAndHash(event.CurrentPassword, user.PasswordHash); err != nil {
			return err
		}

		if event.NewEmail != "" && normalizeEmail(event.NewEmail) != user.Email {
			taken, err := h.repo.Users().EmailTakenTx(ctx, tx, event.NewEmail)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not check email availability")
			}
			if taken {
				return ErrEmailTaken.WithMetadata(map[string]any{
					"email": event.NewEmail,
				})
			}

			user.Email = normalizeEmail(event.NewEmail)
			emailChanged = true

			actor := ActorRef{ID: formatUserID(user.ID), Type: "user"}
			if user.Enabled {
				if _, err := h.states.Transition(ctx, actor, user, UserStatusUnverified,
					WithTransitionReason("email changed")); err != nil {
					return err
				}
			}

			passcode, err = h.repo.Passcodes().IssueTx(ctx, tx, user, RecoveryPasscodeTTL)
			if err != nil {
				return err
			}
		}

		if event.NewPassword != "" {
			passwordHash, err := HashPassword(event.NewPassword)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
			}
			user.PasswordHash = passwordHash
		}

		if phone != "" {
			user.Phone = phone
		}

		if _, err := h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
	}

	if emailChanged && passcode != nil {
		if err := h.mailer.SendPasscode(ctx, user.Email, passcode.Code, passcode.ExpiresAt); err != nil {
			h.logger.Warn("passcode mail delivery failed for %s: %v", user.Email, err)
		}
	}

	h.recordActivity(ctx, user, emailChanged)

	return user, nil
}

func (h *UpdateProfileHandler) recordActivity(ctx context.Context, user *User, emailChanged bool) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventProfileUpdated,
		Actor: ActorRef{
			ID:   formatUserID(user.ID),
			Type: "user",
		},
		UserID: formatUserID(user.ID),
		Metadata: map[string]any{
			"email_changed": emailChanged,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during profile update: %v", err)
	}
}
