package identity

import (
	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig loads identity options from the environment. The signing key is
// required, everything else has workable defaults.
type EnvConfig struct {
	SigningKey      string   `env:"IDENTITY_SIGNING_KEY"`
	SigningMethod   string   `env:"IDENTITY_SIGNING_METHOD" envDefault:"HS512"`
	ContextKey      string   `env:"IDENTITY_CONTEXT_KEY" envDefault:"user"`
	TokenExpiration int      `env:"IDENTITY_TOKEN_EXPIRATION" envDefault:"24"`
	TokenLookup     string   `env:"IDENTITY_TOKEN_LOOKUP" envDefault:"header:Authorization"`
	AuthScheme      string   `env:"IDENTITY_AUTH_SCHEME" envDefault:"Bearer"`
	Issuer          string   `env:"IDENTITY_ISSUER"`
	Audience        []string `env:"IDENTITY_AUDIENCE"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfigFromEnv reads the configuration once at startup.
func LoadConfigFromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to parse identity configuration")
	}

	if cfg.SigningKey == "" {
		return nil, goerrors.New("IDENTITY_SIGNING_KEY must be set", goerrors.CategoryInternal)
	}

	return cfg, nil
}

func (c *EnvConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *EnvConfig) GetSigningMethod() string {
	return c.SigningMethod
}

func (c *EnvConfig) GetContextKey() string {
	return c.ContextKey
}

func (c *EnvConfig) GetTokenExpiration() int {
	return c.TokenExpiration
}

func (c *EnvConfig) GetTokenLookup() string {
	return c.TokenLookup
}

func (c *EnvConfig) GetAuthScheme() string {
	return c.AuthScheme
}

func (c *EnvConfig) GetIssuer() string {
	return c.Issuer
}

func (c *EnvConfig) GetAudience() []string {
	return c.Audience
}
