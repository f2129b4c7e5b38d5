package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	Email    string `json:"email" example:"user@example.com" doc:"Account email, unique"`
	Password string `json:"password" example:"some_secret_word" doc:"Cleartext password"`
	Phone    string `json:"phone_number,omitempty" example:"+15550100123" doc:"Optional phone number"`
}

type RegisterUserHandler struct {
	repo     RepositoryManager
	mailer   PasscodeMailer
	activity ActivitySink
	logger   Logger
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		mailer:   noopMailer{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithMailer sets the mailer used to deliver the activation passcode.
func (h *RegisterUserHandler) WithMailer(mailer PasscodeMailer) *RegisterUserHandler {
	h.mailer = normalizeMailer(mailer)
	return h
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Execute creates a disabled account and issues its activation passcode.
// The passcode mail goes out after the transaction commits, delivery
// failures are logged but do not undo the registration.
func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	phone, err := NormalizePhone(event.Phone)
	if err != nil {
		return nil, err
	}

	passwordHash, err := HashPassword(event.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	var user *User
	var passcode *Passcode

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := h.repo.Users().EmailTakenTx(ctx, tx, event.Email)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not check email availability")
		}

		if taken {
			return ErrEmailTaken.WithMetadata(map[string]any{
				"email": event.Email,
			})
		}

		user, err = h.repo.Users().CreateTx(ctx, tx, &User{
			Email:        event.Email,
			PasswordHash: passwordHash,
			Enabled:      false,
			Phone:        phone,
		})
		if err != nil {
			return err
		}

		passcode, err = h.repo.Passcodes().IssueTx(ctx, tx, user, RegistrationPasscodeTTL)
		if err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register user")
	}

	if err := h.mailer.SendPasscode(ctx, user.Email, passcode.Code, passcode.ExpiresAt); err != nil {
		h.logger.Warn("passcode mail delivery failed for %s: %v", user.Email, err)
	}

	h.recordActivity(ctx, user)

	return user, nil
}

func (h *RegisterUserHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor: ActorRef{
			ID:   formatUserID(user.ID),
			Type: "user",
		},
		UserID:     formatUserID(user.ID),
		ToStatus:   UserStatusUnverified,
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during registration: %v", err)
	}
}
