package shop

import (
	"context"
	"reflect"

	"github.com/goliatone/go-errors"
)

// Auther issues session tokens for verified credentials and resolves incoming
// bearer tokens back to users. It keeps no per-session state; validity of a
// token is fully determined by its signature and claims.
type Auther struct {
	provider     IdentityProvider
	users        UserTracker
	tokenService TokenService
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, users UserTracker, tokenService TokenService) *Auther {
	return &Auther{
		provider:     provider,
		users:        users,
		tokenService: tokenService,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the submitted credentials and issues a session token
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return "", ErrMismatchedHashAndPassword
	}

	return s.tokenService.Generate(identity, PurposeSession)
}

// SessionFromToken validates a raw bearer token and returns its claims
func (s *Auther) SessionFromToken(raw string) (AuthClaims, error) {
	claims, err := s.tokenService.Validate(raw, PurposeSession)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	return claims, nil
}

// ResolveUser is the precondition gate on every protected route: decode the
// token, extract the user id, and load the record. Every failure collapses
// into the generic invalid token error.
func (s *Auther) ResolveUser(ctx context.Context, raw string) (*User, error) {
	claims, err := s.SessionFromToken(raw)
	if err != nil {
		return nil, err
	}

	if claims.UserID() == "" {
		return nil, ErrTokenMalformed
	}

	user, err := s.users.GetByIdentifier(ctx, claims.UserID())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrTokenMalformed
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user for session")
	}

	return user, nil
}

var _ Authenticator = (*Auther)(nil)
