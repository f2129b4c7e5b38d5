package identity

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone parses and validates an optional phone number, returning
// the E.164 form. Empty input is allowed, the field is optional.
func NormalizePhone(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number").
			WithCode(goerrors.CodeBadRequest)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
