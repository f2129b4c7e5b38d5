package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeInvalidTransition = "INVALID_USER_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_USER_STATE"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid user state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from a terminal status.
var ErrTerminalState = goerrors.New("user state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// ActorRef identifies who triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// WithTransitionReason attaches a human-readable reason to the emitted event.
func WithTransitionReason(reason string) TransitionOption {
	return func(o *transitionOptions) {
		o.reason = reason
	}
}

// WithTransitionMetadata merges extra key/value pairs into the emitted event.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(o *transitionOptions) {
		for k, v := range metadata {
			if o.meta == nil {
				o.meta = map[string]any{}
			}
			o.meta[k] = v
		}
	}
}

type transitionOptions struct {
	reason string
	meta   map[string]any
}

func (o transitionOptions) eventMetadata() map[string]any {
	if o.reason == "" && len(o.meta) == 0 {
		return nil
	}
	out := make(map[string]any, len(o.meta)+1)
	if o.reason != "" {
		out["reason"] = o.reason
	}
	for k, v := range o.meta {
		out[k] = v
	}
	return out
}

// UserStateMachine validates lifecycle status changes. Transition mutates the
// record in memory only; persisting the change stays with the caller so it
// can happen inside the caller's transaction.
type UserStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error)
	CurrentStatus(user *User) UserStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*userStateMachine)

// WithStateMachineActivitySink sets the sink that receives status-change events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *userStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *userStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewUserStateMachine returns the default implementation. The lifecycle is
// Unverified <-> Active with Deleted terminal from either side.
func NewUserStateMachine(opts ...StateMachineOption) UserStateMachine {
	sm := &userStateMachine{
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}
	return sm
}

type userStateMachine struct {
	activitySink ActivitySink
	logger       Logger
}

func (sm *userStateMachine) Transition(ctx context.Context, actor ActorRef, user *User, target UserStatus, opts ...TransitionOption) (*User, error) {
	if user == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "user is nil",
		})
	}
	if target == "" {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	from := user.Status()
	if from == target {
		return user, nil
	}

	if from == UserStatusDeleted {
		return nil, ErrTerminalState.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if !allowedTransition(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	options := transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	user.Enabled = target == UserStatusActive

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventUserStatusChanged,
		Actor:      actor,
		UserID:     formatUserID(user.ID),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   options.eventMetadata(),
	})

	return user, nil
}

func (sm *userStateMachine) CurrentStatus(user *User) UserStatus {
	if user == nil {
		return ""
	}
	return user.Status()
}

func allowedTransition(from, to UserStatus) bool {
	switch from {
	case UserStatusUnverified:
		return to == UserStatusActive || to == UserStatusDeleted
	case UserStatusActive:
		return to == UserStatusUnverified || to == UserStatusDeleted
	default:
		return false
	}
}

func (sm *userStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sm.activitySink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}
