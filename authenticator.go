package identity

import (
	"context"
	"reflect"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

type Auther struct {
	provider     IdentityProvider
	repo         RepositoryManager
	logger       Logger
	tokenService TokenService
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, repo RepositoryManager, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:     provider,
		repo:         repo,
		logger:       defLogger{},
		tokenService: tokenService,
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService overrides the token service used to mint and verify tokens.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials, refuses accounts that never activated,
// and mints a bearer token carrying the account email as its subject.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.VerifyIdentity(ctx, identifier, password); err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return "", ErrIdentityNotFound
	}

	if !identity.Enabled() {
		s.logger.Warn("Login blocked, account not activated: %s", identifier)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      ErrAccountNotActivated.Error(),
		})
		return "", ErrAccountNotActivated
	}

	token, err := s.tokenService.Generate(identity.Email())
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	s.trackAccessToken(ctx, identity, token)

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

// ValidateToken verifies a bearer token and resolves the account it was
// minted for. The "Bearer " prefix is accepted and stripped.
func (s *Auther) ValidateToken(ctx context.Context, bearer string) (*User, error) {
	raw := StripBearerPrefix(bearer)
	if raw == "" {
		return nil, ErrTokenMalformed
	}

	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("ValidateToken validation failed: %v", err)
		return nil, err
	}

	user, err := s.repo.Users().GetByEmail(ctx, claims.Subject())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrIdentityNotFound.WithMetadata(map[string]any{
				"email": claims.Subject(),
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve token subject")
	}

	return user, nil
}

// StripBearerPrefix removes a leading "Bearer " scheme from a token string.
func StripBearerPrefix(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "Bearer ") {
		return strings.TrimSpace(token[7:])
	}
	return token
}

// trackAccessToken writes the audit record for a minted token. Best effort,
// a failed write does not fail the login.
func (s *Auther) trackAccessToken(ctx context.Context, identity Identity, token string) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		s.logger.Warn("could not decode freshly minted token for tracking: %v", err)
		return
	}

	userID, err := parseUserID(identity.ID())
	if err != nil {
		s.logger.Warn("could not parse identity id for token tracking: %v", err)
		return
	}

	issued := claims.IssuedAt()
	record := &AccessToken{
		Token:     token,
		TokenType: TokenTypeBearer,
		UserID:    userID,
		IssuedAt:  &issued,
		ExpiresAt: claims.Expires(),
	}

	if _, err := s.repo.AccessTokens().Track(ctx, record); err != nil {
		s.logger.Warn("failed to track access token: %v", err)
	}
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = timeNow()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}
