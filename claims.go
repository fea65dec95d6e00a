package shop

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPurpose tags what a signed token may be used for. Session and
// verification tokens share one codec and differ only in consumption policy,
// so the purpose travels inside the claims instead of being inferred from the
// route that received the token.
type TokenPurpose string

const (
	// PurposeSession marks bearer tokens issued at login
	PurposeSession TokenPurpose = "session"
	// PurposeVerification marks single-use email verification tokens
	PurposeVerification TokenPurpose = "verification"
)

// AuthClaims represents the decoded claim set of a signed token
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
	Purpose() TokenPurpose
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenClaims is the concrete claim set embedded in every signed token
type TokenClaims struct {
	jwt.RegisteredClaims
	UID  string       `json:"uid,omitempty"`
	Name string       `json:"username,omitempty"`
	Use  TokenPurpose `json:"purpose,omitempty"`
}

var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Username returns the username claim
func (c *TokenClaims) Username() string {
	return c.Name
}

// Purpose returns the token purpose, defaulting to session for tokens minted
// before the purpose claim existed.
func (c *TokenClaims) Purpose() TokenPurpose {
	if c.Use == "" {
		return PurposeSession
	}
	return c.Use
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
