package identity

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeIdentityNotFound     = "IDENTITY_NOT_FOUND"
	TextCodeAccountNotActivated  = "ACCOUNT_NOT_ACTIVATED"
	TextCodeEmailTaken           = "EMAIL_TAKEN"
	TextCodePasscodeInvalid      = "PASSCODE_INVALID"
	TextCodePasscodeExpired      = "PASSCODE_EXPIRED"
	TextCodePasswordMismatch     = "PASSWORD_MISMATCH"
	TextCodeCredentialsInvalid   = "CREDENTIALS_INVALID"
	TextCodeTokenExpired         = "TOKEN_EXPIRED"
	TextCodeTokenMalformed       = "TOKEN_MALFORMED"
	TextCodeTokenUnsupported     = "TOKEN_UNSUPPORTED"
	TextCodeTokenClaimsUnreadble = "TOKEN_CLAIMS_UNREADABLE"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrAccountNotActivated is returned when a disabled account tries to log in.
// Conflict-class failures surface as 400 like every other invalid argument.
var ErrAccountNotActivated = goerrors.New("account is not activated", goerrors.CategoryConflict).
	WithTextCode(TextCodeAccountNotActivated).
	WithCode(goerrors.CodeBadRequest)

// ErrEmailTaken is returned when registering or updating to an email already in use
var ErrEmailTaken = goerrors.New("email address is already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeBadRequest)

// ErrPasscodeInvalid is returned when no passcode matches the submitted code
var ErrPasscodeInvalid = goerrors.New("invalid passcode", goerrors.CategoryValidation).
	WithTextCode(TextCodePasscodeInvalid).
	WithCode(goerrors.CodeBadRequest)

// ErrPasscodeExpired is returned when the matching passcode is past its expiration
var ErrPasscodeExpired = goerrors.New("passcode has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodePasscodeExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordMismatch is returned when a new password and its confirmation differ
var ErrPasswordMismatch = goerrors.New("password and confirmation do not match", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(goerrors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned when a password check fails
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeCredentialsInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when a required string input is empty
var ErrNoEmptyString = goerrors.New("value should not be an empty string", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired is returned for structurally valid tokens past their exp claim
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail structural or signature checks
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenUnsupported is returned for tokens signed with an unexpected method
var ErrTokenUnsupported = goerrors.New("token signing method is not supported", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenUnsupported).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToDecodeClaims unable to get structured claims from token
var ErrUnableToDecodeClaims = goerrors.New("unable to decode token claims", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenClaimsUnreadble).
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
