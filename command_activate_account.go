package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type ActivateAccountMessage struct {
	Email string `json:"email" example:"user@example.com" doc:"Account email"`
	Code  string `json:"otp" example:"A1B2C3" doc:"One-time passcode from the activation mail"`
}

type ActivateAccountHandler struct {
	repo     RepositoryManager
	states   UserStateMachine
	activity ActivitySink
	logger   Logger
}

// NewActivateAccountHandler creates a handler with sane defaults.
func NewActivateAccountHandler(repo RepositoryManager) *ActivateAccountHandler {
	return &ActivateAccountHandler{
		repo:     repo,
		states:   NewUserStateMachine(),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithStateMachine overrides the state machine used for the status change.
func (h *ActivateAccountHandler) WithStateMachine(sm UserStateMachine) *ActivateAccountHandler {
	if sm != nil {
		h.states = sm
	}
	return h
}

// WithActivitySink sets the sink used to emit activation events.
func (h *ActivateAccountHandler) WithActivitySink(sink ActivitySink) *ActivateAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ActivateAccountHandler) WithLogger(logger Logger) *ActivateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// Execute enables the account when the submitted passcode matches and has
// not expired. Activating an already enabled account succeeds without
// touching any state. A wrong or expired code fails without mutation.
func (h *ActivateAccountHandler) Execute(ctx context.Context, event ActivateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateAccountHandler) execute(ctx context.Context, event ActivateAccountMessage) error {
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

		// already activated, nothing to consume
		if user.Enabled {
			return nil
		}

		passcode, err := h.repo.Passcodes().FindActiveTx(ctx, tx, user.ID, event.Code, time.Now())
		if err != nil {
			return err
		}

		actor := ActorRef{ID: formatUserID(user.ID), Type: "user"}
		if _, err := h.states.Transition(ctx, actor, user, UserStatusActive); err != nil {
			return err
		}

		if _, err := h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return err
		}

		if err := h.repo.Passcodes().InvalidateTx(ctx, tx, passcode.UserID); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		h.recordActivity(ctx, user, event.Email, err)
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
	}

	h.recordActivity(ctx, user, event.Email, nil)

	return nil
}

func (h *ActivateAccountHandler) recordActivity(ctx context.Context, user *User, email string, cause error) {
	event := ActivityEvent{
		EventType: ActivityEventActivationSuccess,
		Actor:     ActorRef{Type: "user"},
		Metadata: map[string]any{
			"email": email,
		},
		OccurredAt: time.Now(),
	}

	if user != nil {
		event.Actor.ID = formatUserID(user.ID)
		event.UserID = formatUserID(user.ID)
	}

	if cause != nil {
		event.EventType = ActivityEventActivationFailure
		event.Metadata["error"] = cause.Error()
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during activation: %v", err)
	}
}
