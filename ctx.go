package identity

import (
	"context"

	"github.com/goliatone/go-router"
)

type ctxKey int

const (
	userKey ctxKey = iota
	claimsKey
)

// WithContext stores the resolved account on the request context.
func WithContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// FromContext returns the account previously stored with WithContext.
func FromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(userKey).(*User)
	return user, ok
}

// WithClaimsContext stores validated token claims on the request context.
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims returns claims previously stored with WithClaimsContext.
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(AuthClaims)
	return claims, ok
}

// GetRouterClaims reads claims from router locals. An empty key falls back
// to "user", the default context key of the JWT middleware.
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = "user"
	}
	claims, ok := ctx.Locals(key).(AuthClaims)
	return claims, ok
}
