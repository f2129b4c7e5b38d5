package jwtware

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
)

// ErrJWTMissingOrMalformed is returned when no usable token was found in the request.
var ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")

var defaultTokenLookup = "header:" + router.HeaderAuthorization

// TokenValidator turns a raw compact token into claims. Declared here so the
// middleware does not import the package that owns the token service.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims is the minimal claim surface the middleware needs.
type AuthClaims interface {
	Subject() string
	Email() string
}

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	SigningKey     SigningKey
	SigningKeys    map[string]SigningKey
	ContextKey     string
	TokenLookup    string
	AuthScheme     string
	KeyFunc        jwt.Keyfunc
	JWKSetURLs     []string

	// TokenValidator validates raw tokens. When nil a validator is built
	// from the configured keys.
	TokenValidator TokenValidator

	// ContextEnricher propagates validated claims into the standard context.
	ContextEnricher func(c context.Context, claims AuthClaims) context.Context
}

type SigningKey struct {
	JWTAlg string
	Key    any
}

func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := withConfigDefaults(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := extractToken(ctx, cfg.TokenLookup, cfg.AuthScheme)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), claims))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

func withConfigDefaults(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if err.Error() == ErrJWTMissingOrMalformed.Error() {
				return c.Status(router.StatusBadRequest).SendString(ErrJWTMissingOrMalformed.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.SigningKey.Key == nil && len(cfg.SigningKeys) == 0 && len(cfg.JWKSetURLs) == 0 && cfg.KeyFunc == nil && cfg.TokenValidator == nil {
		panic("IDENTITY: JWT middleware configuration: At least one of the following is required: TokenValidator, KeyFunc, JWKSetURLs, SigningKeys, or SigningKey.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}
	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}
	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = buildKeyFunc(cfg)
	}

	if cfg.TokenValidator == nil {
		cfg.TokenValidator = keyFuncValidator{keyFunc: cfg.KeyFunc}
	}

	return cfg
}

func buildKeyFunc(cfg Config) jwt.Keyfunc {
	if len(cfg.SigningKeys) == 0 && len(cfg.JWKSetURLs) == 0 {
		if cfg.SigningKey.Key == nil {
			return nil
		}
		return staticKeyFunc(cfg.SigningKey)
	}

	var givenKeys map[string]keyfunc.GivenKey
	if len(cfg.SigningKeys) > 0 {
		givenKeys = make(map[string]keyfunc.GivenKey, len(cfg.SigningKeys))
		for kid, key := range cfg.SigningKeys {
			givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
				Algorithm: key.JWTAlg,
			})
		}
	}

	if len(cfg.JWKSetURLs) == 0 {
		return keyfunc.NewGiven(givenKeys).Keyfunc
	}

	kf, err := remoteKeyFunc(givenKeys, cfg.JWKSetURLs)
	if err != nil {
		panic("Failed to create keyfunc from JWK Set URL: " + err.Error())
	}
	return kf
}

func staticKeyFunc(key SigningKey) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if key.JWTAlg == "" {
			return key.Key, nil
		}
		alg, ok := token.Header["alg"].(string)
		if !ok {
			return nil, fmt.Errorf("missing alg in token header")
		}
		if alg != key.JWTAlg {
			return nil, fmt.Errorf("unexpected jwt signing method=%s", alg)
		}
		return key.Key, nil
	}
}

func remoteKeyFunc(givenKeys map[string]keyfunc.GivenKey, urls []string) (jwt.Keyfunc, error) {
	opts := keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	perURL := make(map[string]keyfunc.Options, len(urls))
	for _, url := range urls {
		perURL[url] = opts
	}

	multi, err := keyfunc.GetMultiple(perURL, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWT URLs: %w", err)
	}
	return multi.Keyfunc, nil
}

// keyFuncValidator parses and verifies tokens with the configured key material.
type keyFuncValidator struct {
	keyFunc jwt.Keyfunc
}

func (v keyFuncValidator) Validate(tokenString string) (AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &registeredClaims{}, v.keyFunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*registeredClaims)
	if !ok || !token.Valid {
		return nil, ErrJWTMissingOrMalformed
	}
	return claims, nil
}

type registeredClaims struct {
	jwt.RegisteredClaims
}

func (c *registeredClaims) Subject() string { return c.RegisteredClaims.Subject }

func (c *registeredClaims) Email() string { return c.RegisteredClaims.Subject }

// extractToken walks the comma-separated lookup sources in order, for example
// "header:Authorization,query:auth_token", and returns the first hit.
func extractToken(ctx router.Context, tokenLookup, authScheme string) (string, error) {
	lastErr := ErrJWTMissingOrMalformed

	for _, source := range strings.Split(tokenLookup, ",") {
		kind, name, found := strings.Cut(strings.TrimSpace(source), ":")
		if !found {
			continue
		}
		name = strings.TrimSpace(name)

		var token string
		switch strings.TrimSpace(kind) {
		case "header":
			var err error
			if token, err = tokenFromHeader(ctx, name, authScheme); err != nil {
				lastErr = err
				continue
			}
		case "query":
			token = ctx.Query(name, "")
		case "param":
			token = ctx.Param(name)
		case "cookie":
			token = ctx.Cookies(name)
		}

		if token != "" {
			return token, nil
		}
	}

	return "", lastErr
}

func tokenFromHeader(ctx router.Context, header, authScheme string) (string, error) {
	value := ctx.GetString(header, "")
	scheme := strings.TrimSpace(authScheme)
	if scheme == "" {
		return "", ErrJWTMissingOrMalformed
	}
	if len(value) > len(scheme)+1 && strings.EqualFold(value[:len(scheme)], scheme) {
		return strings.TrimSpace(value[len(scheme):]), nil
	}
	return "", ErrJWTMissingOrMalformed
}
