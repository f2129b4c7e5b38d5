package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PasscodeLength is the number of characters in a generated passcode
const PasscodeLength = 6

const (
	// RegistrationPasscodeTTL is how long activation codes issued at sign up live
	RegistrationPasscodeTTL = 10 * time.Minute
	// RecoveryPasscodeTTL is how long regenerated and forgot-password codes live
	RecoveryPasscodeTTL = 5 * time.Minute
)

// GeneratePasscode returns a 6 character uppercase alphanumeric code derived
// from a random UUID. Codes are not unique across users, a code only matters
// together with the user it was issued for.
func GeneratePasscode() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:PasscodeLength])
}
