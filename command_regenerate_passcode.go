package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type RegeneratePasscodeMessage struct {
	Email string `json:"email" example:"user@example.com" doc:"Account email"`
}

type ForgotPasswordMessage struct {
	Email string `json:"email" example:"user@example.com" doc:"Account email"`
}

// RegeneratePasscodeHandler replaces the user's current passcode with a
// fresh short lived one and mails it. Both the explicit regenerate request
// and the forgot-password flow go through it.
type RegeneratePasscodeHandler struct {
	repo     RepositoryManager
	mailer   PasscodeMailer
	activity ActivitySink
	logger   Logger
}

// NewRegeneratePasscodeHandler creates a handler with sane defaults.
func NewRegeneratePasscodeHandler(repo RepositoryManager) *RegeneratePasscodeHandler {
	return &RegeneratePasscodeHandler{
		repo:     repo,
		mailer:   noopMailer{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithMailer sets the mailer used to deliver the new passcode.
func (h *RegeneratePasscodeHandler) WithMailer(mailer PasscodeMailer) *RegeneratePasscodeHandler {
	h.mailer = normalizeMailer(mailer)
	return h
}

// WithActivitySink sets the sink used to emit passcode events.
func (h *RegeneratePasscodeHandler) WithActivitySink(sink ActivitySink) *RegeneratePasscodeHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegeneratePasscodeHandler) WithLogger(logger Logger) *RegeneratePasscodeHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Execute handles an explicit passcode regeneration request.
func (h *RegeneratePasscodeHandler) Execute(ctx context.Context, event RegeneratePasscodeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during passcode regeneration",
		)
	default:
		return h.execute(ctx, event.Email, "regenerate")
	}
}

// ExecuteForgotPassword handles the forgot-password flow. Same mechanics,
// the distinct message keeps the intents separate at call sites.
func (h *RegeneratePasscodeHandler) ExecuteForgotPassword(ctx context.Context, event ForgotPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during forgot password request",
		)
	default:
		return h.execute(ctx, event.Email, "forgot_password")
	}
}

func (h *RegeneratePasscodeHandler) execute(ctx context.Context, email, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User
	var passcode *Passcode

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityNotFound.WithMetadata(map[string]any{
					"email": email,
				})
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve user")
		}

		passcode, err = h.repo.Passcodes().IssueTx(ctx, tx, user, RecoveryPasscodeTTL)
		if err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to regenerate passcode")
	}

	if err := h.mailer.SendPasscode(ctx, user.Email, passcode.Code, passcode.ExpiresAt); err != nil {
		h.logger.Warn("passcode mail delivery failed for %s: %v", user.Email, err)
	}

	h.recordActivity(ctx, user, reason)

	return nil
}

func (h *RegeneratePasscodeHandler) recordActivity(ctx context.Context, user *User, reason string) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventPasscodeRegenerate,
		Actor: ActorRef{
			ID:   formatUserID(user.ID),
			Type: "user",
		},
		UserID: formatUserID(user.ID),
		Metadata: map[string]any{
			"reason": reason,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during passcode regeneration: %v", err)
	}
}
