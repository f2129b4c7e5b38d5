package identity

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventUserRegistered     ActivityEventType = "identity.registered"
	ActivityEventUserStatusChanged  ActivityEventType = "identity.status.changed"
	ActivityEventActivationSuccess  ActivityEventType = "identity.activation.success"
	ActivityEventActivationFailure  ActivityEventType = "identity.activation.failure"
	ActivityEventLoginSuccess       ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure       ActivityEventType = "auth.login.failure"
	ActivityEventPasscodeRegenerate ActivityEventType = "identity.passcode.regenerated"
	ActivityEventPasswordChanged    ActivityEventType = "identity.password.changed"
	ActivityEventProfileUpdated     ActivityEventType = "identity.profile.updated"
	ActivityEventAccountDeleted     ActivityEventType = "identity.account.deleted"
)

// ActivityEvent is one audit record. FromStatus and ToStatus are only set
// for status-change events.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	FromStatus UserStatus
	ToStatus   UserStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink receives lifecycle audit events. Recording is best effort,
// a failing sink never fails the operation that produced the event.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to ActivitySink.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error { return nil }

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
