// Package delegated authenticates requests by handing the bearer token to a
// remote identity service for validation. Resource services that do not hold
// the signing key use it instead of verifying tokens locally.
package delegated

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

const defaultContextKey = "principal"

// DefaultClientTimeout bounds the round trip to the identity service.
const DefaultClientTimeout = 5 * time.Second

// Principal is the authenticated account returned by the identity service.
type Principal struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Enabled bool   `json:"enabled"`
	// Authorities is always empty today, the identity service does not
	// assign roles. Kept so downstream checks have a stable shape.
	Authorities []string `json:"authorities,omitempty"`
}

type Config struct {
	// ValidationURL is the identity service endpoint that validates tokens,
	// e.g. http://user-service/api/auth/validateToken
	ValidationURL string

	// Client used for the validation call. A default client with
	// DefaultClientTimeout is used when nil.
	Client *http.Client

	// ContextKey is where the Principal is stored in router locals.
	ContextKey string

	// AuthScheme is the expected Authorization scheme.
	AuthScheme string

	// ErrorHandler handles rejected requests. The default responds 401
	// with no body.
	ErrorHandler router.ErrorHandler
}

type principalCtxKey struct{}

// WithPrincipal stores the principal in a standard context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// FromContext retrieves the principal from a standard context.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(*Principal)
	return p, ok
}

// FromRoute retrieves the principal from router locals.
func FromRoute(ctx router.Context, key string) (*Principal, bool) {
	if key == "" {
		key = defaultContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	p, ok := raw.(*Principal)
	return p, ok
}

// New builds the middleware. Requests without a bearer token proceed
// unauthenticated, anything carrying one either validates remotely or is
// rejected with 401. A validation outage rejects rather than letting
// unverified tokens through.
func New(config ...Config) router.MiddlewareFunc {
	cfg := getDefaultConfig(config...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			header := ctx.Header(router.HeaderAuthorization)
			if !hasScheme(header, cfg.AuthScheme) {
				return ctx.Next()
			}

			principal, err := validate(ctx.Context(), cfg, header)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, principal)
			ctx.SetContext(WithPrincipal(ctx.Context(), principal))

			return ctx.Next()
		}
	}
}

func getDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ValidationURL == "" {
		panic("DELEGATED: middleware configuration: ValidationURL is required.")
	}

	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: DefaultClientTimeout}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = defaultContextKey
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.Status(router.StatusUnauthorized).SendString("")
		}
	}

	return cfg
}

func hasScheme(header, scheme string) bool {
	header = strings.TrimSpace(header)
	l := len(scheme)
	return len(header) > l+1 && strings.EqualFold(header[:l], scheme)
}

func validate(ctx context.Context, cfg Config, authorization string) (*Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.ValidationURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(router.HeaderAuthorization, authorization)

	res, err := cfg.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, &ValidationError{Status: res.StatusCode, Body: string(body)}
	}

	principal := &Principal{}
	if err := json.Unmarshal(body, principal); err != nil {
		return nil, err
	}

	if principal.Email == "" {
		return nil, &ValidationError{Status: res.StatusCode, Body: "response missing account email"}
	}

	if principal.Authorities == nil {
		principal.Authorities = []string{}
	}

	return principal, nil
}

// ValidationError is returned when the identity service rejects a token.
type ValidationError struct {
	Status int
	Body   string
}

func (e *ValidationError) Error() string {
	return "token validation rejected with status " + http.StatusText(e.Status)
}
