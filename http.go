package identity

import (
	"context"
	"net/http"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity/middleware/jwtware"
	"github.com/goliatone/go-router"
)

// APIErrorResponse is the JSON error body returned by every endpoint.
type APIErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

// RespondError maps a categorized error onto the JSON error envelope.
// Internal errors are redacted, the category drives the HTTP status when
// the error carries no explicit code.
func RespondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := statusForError(richErr)
	message := richErr.Message
	if status >= http.StatusInternalServerError {
		message = "An unexpected server error occurred"
	}

	return ctx.JSON(status, APIErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      ctx.OriginalURL(),
	})
}

func statusForError(richErr *goerrors.Error) int {
	if richErr.Code >= http.StatusBadRequest {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return http.StatusBadRequest
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ProtectedRoute guards a route with local token validation using the
// configured signing key.
func ProtectedRoute(cfg Config, tokenService TokenService, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	if tokenService == nil {
		tokenService = NewTokenService(
			[]byte(cfg.GetSigningKey()),
			cfg.GetTokenExpiration(),
			cfg.GetIssuer(),
			cfg.GetAudience(),
			defLogger{},
		)
	}

	return jwtware.New(jwtware.Config{
		ErrorHandler: errorHandler,
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:     cfg.GetAuthScheme(),
		ContextKey:     cfg.GetContextKey(),
		TokenLookup:    cfg.GetTokenLookup(),
		TokenValidator: tokenValidatorAdapter{ts: tokenService},
		ContextEnricher: func(c context.Context, claims jwtware.AuthClaims) context.Context {
			if ac, ok := claims.(AuthClaims); ok {
				return WithClaimsContext(c, ac)
			}
			return c
		},
	})
}

type tokenValidatorAdapter struct {
	ts TokenService
}

func (a tokenValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := a.ts.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
