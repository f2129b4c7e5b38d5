package identity

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is a derived lifecycle state for users
type UserStatus string

const (
	// UserStatusUnverified means the account exists but has not confirmed a passcode
	UserStatusUnverified UserStatus = "unverified"
	// UserStatusActive means the account confirmed a passcode and can log in
	UserStatusActive UserStatus = "active"
	// UserStatusDeleted is terminal
	UserStatusDeleted UserStatus = "deleted"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Enabled       bool       `bun:"enabled,notnull,default:false" json:"enabled"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Status derives the lifecycle state from the enabled flag. Deleted users
// have no row, so the derived status never reports deleted.
func (u *User) Status() UserStatus {
	if u.Enabled {
		return UserStatusActive
	}
	return UserStatusUnverified
}

// Passcode is a short lived one-time code tied to a user
type Passcode struct {
	bun.BaseModel `bun:"table:passcodes,alias:otp"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Code          string     `bun:"code,notnull" json:"code,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	UserID        int64      `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the passcode is past its expiration at the given instant.
func (p *Passcode) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// AccessToken is a durable record of a bearer token minted at login. The
// signed token itself stays valid until exp regardless of this row, the
// record exists for auditing.
type AccessToken struct {
	bun.BaseModel `bun:"table:access_tokens,alias:tok"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string     `bun:"token,notnull" json:"token,omitempty"`
	TokenType     string     `bun:"token_type,notnull" json:"token_type,omitempty"`
	UserID        int64      `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	IssuedAt      *time.Time `bun:"issued_at,nullzero,default:current_timestamp" json:"issued_at,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
}

// TokenTypeBearer is the only token type minted by this package
const TokenTypeBearer = "Bearer"

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseUserID(id string) (int64, error) {
	return strconv.ParseInt(id, 10, 64)
}

// timeNow is swapped out in tests
var timeNow = time.Now
