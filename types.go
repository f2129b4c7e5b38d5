package identity

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
	Enabled() bool
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	ValidateToken(ctx context.Context, bearer string) (*User, error)
}

// TokenService mints and verifies compact JWS tokens
type TokenService interface {
	Generate(subject string) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
	Subject(tokenString string) (string, error)
}

// Config holds identity service options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// PasscodeMailer delivers one-time passcodes to users. Delivery is best
// effort, callers log failures but do not roll back the operation that
// produced the code.
type PasscodeMailer interface {
	SendPasscode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// PasscodeMailerFunc adapts a function to the PasscodeMailer interface.
type PasscodeMailerFunc func(ctx context.Context, email, code string, expiresAt time.Time) error

func (f PasscodeMailerFunc) SendPasscode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if f == nil {
		return nil
	}
	return f(ctx, email, code, expiresAt)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
