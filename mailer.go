package identity

import (
	"context"
	"time"
)

// LogMailer writes passcode mails to the logger instead of sending them.
// Useful for development and as the default when no real mailer is wired.
type LogMailer struct {
	logger Logger
}

// NewLogMailer creates a mailer that logs instead of sending.
func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{logger: logger}
}

// SendPasscode implements PasscodeMailer.
func (m *LogMailer) SendPasscode(_ context.Context, email, code string, expiresAt time.Time) error {
	m.logger.Info("passcode mail to=%s subject=%q body=%q", email,
		"Your verification code",
		"Use code "+code+" to verify your account. It expires at "+expiresAt.Format(time.RFC3339)+".")
	return nil
}

type noopMailer struct{}

func (noopMailer) SendPasscode(context.Context, string, string, time.Time) error {
	return nil
}

func normalizeMailer(m PasscodeMailer) PasscodeMailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}
