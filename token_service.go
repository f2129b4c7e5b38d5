package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

// NewTokenService creates a new TokenService instance. Tokens are signed
// with HMAC SHA-512 and expire tokenExpiration hours after issuance.
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
	}
}

// Generate creates a JWT for the given subject with sub, iat, and exp claims
func (ts *TokenServiceImpl) Generate(subject string) (string, error) {
	if subject == "" {
		return "", ErrNoEmptyString
	}

	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
		},
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary JWT claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, ErrTokenUnsupported
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case goerrors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case goerrors.Is(err, jwt.ErrTokenUnverifiable), goerrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, goerrors.Wrap(err, ErrTokenUnsupported.Category, ErrTokenUnsupported.Message).
				WithTextCode(ErrTokenUnsupported.TextCode).
				WithCode(goerrors.CodeUnauthorized)
		default:
			return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode).
				WithCode(goerrors.CodeUnauthorized)
		}
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrUnableToDecodeClaims
}

// Subject extracts the sub claim without verifying the signature. Callers
// must Validate the token before trusting the result.
func (ts *TokenServiceImpl) Subject(tokenString string) (string, error) {
	claims := &JWTClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(goerrors.CodeUnauthorized)
	}
	return claims.Subject(), nil
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
