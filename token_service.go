package shop

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenService signs and validates claim sets. One service handles both
// session and verification tokens; the purpose claim keeps them apart.
type TokenService interface {
	Generate(identity Identity, purpose TokenPurpose) (string, error)
	SignClaims(claims *TokenClaims) (string, error)
	Validate(tokenString string, purpose TokenPurpose) (AuthClaims, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	signingMethod   *jwt.SigningMethodHMAC
	tokenExpiration int
	verificationTTL time.Duration
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

// NewTokenService creates a new TokenService instance. The signing method is
// resolved by name and must be HMAC-class; anything else fails construction
// rather than producing a codec that can never validate its own tokens.
func NewTokenService(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	if logger == nil {
		logger = defLogger{}
	}

	name := cfg.GetSigningMethod()
	if name == "" {
		name = "HS256"
	}

	method, ok := jwt.GetSigningMethod(name).(*jwt.SigningMethodHMAC)
	if !ok || method == nil {
		return nil, errors.New(
			fmt.Sprintf("unsupported signing method: %s", name),
			errors.CategoryBadInput,
		)
	}

	return &TokenServiceImpl{
		signingKey:      []byte(cfg.GetSigningKey()),
		signingMethod:   method,
		tokenExpiration: cfg.GetTokenExpiration(),
		verificationTTL: cfg.GetVerificationTTL(),
		issuer:          cfg.GetIssuer(),
		audience:        cfg.GetAudience(),
		logger:          logger,
	}, nil
}

// Generate creates a signed token carrying the identity claim set
func (ts *TokenServiceImpl) Generate(identity Identity, purpose TokenPurpose) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryBadInput)
	}

	now := time.Now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttlFor(purpose))),
		},
		UID:  identity.ID(),
		Name: identity.Username(),
		Use:  purpose,
	}

	ensureTokenID(&claims.RegisteredClaims)

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(ts.signingMethod, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims.
// Any structural or signature failure maps to the generic invalid token error;
// a purpose mismatch is rejected even when the signature checks out.
func (ts *TokenServiceImpl) Validate(tokenString string, purpose TokenPurpose) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrTokenMalformed
	}

	if claims.Purpose() != purpose {
		ts.logger.Error("TokenService validate purpose mismatch", "want", purpose, "got", claims.Purpose())
		return nil, ErrWrongTokenPurpose
	}

	return claims, nil
}

func (ts *TokenServiceImpl) ttlFor(purpose TokenPurpose) time.Duration {
	if purpose == PurposeVerification {
		if ts.verificationTTL > 0 {
			return ts.verificationTTL
		}
		return 24 * time.Hour
	}

	if ts.tokenExpiration > 0 {
		return time.Duration(ts.tokenExpiration) * time.Hour
	}
	return 24 * time.Hour
}
