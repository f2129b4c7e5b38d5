package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the read view over a validated token's claims.
type AuthClaims interface {
	Subject() string
	Email() string
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims wraps the registered JWT claim set. Tokens are minted with the
// account email as subject, so Subject and Email read the same claim.
type JWTClaims struct {
	jwt.RegisteredClaims
}

var _ AuthClaims = (*JWTClaims)(nil)

func (c *JWTClaims) Subject() string { return c.RegisteredClaims.Subject }

func (c *JWTClaims) Email() string { return c.RegisteredClaims.Subject }

func (c *JWTClaims) Expires() time.Time {
	return numericDateTime(c.RegisteredClaims.ExpiresAt)
}

func (c *JWTClaims) IssuedAt() time.Time {
	return numericDateTime(c.RegisteredClaims.IssuedAt)
}

func numericDateTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
