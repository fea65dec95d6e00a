// Package bearer implements bearer token authentication middleware for fiber.
// Every failure path answers 401 with a WWW-Authenticate challenge and the
// same generic message, never a hint about what exactly was wrong with the
// token.
package bearer

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	defaultTokenLookup = "header:" + fiber.HeaderAuthorization
	// ErrMissingOrMalformed is returned when no token could be extracted
	// from the configured lookup source.
	ErrMissingOrMalformed = errors.New("missing or malformed bearer token")
	// ErrNoClaims is returned when the context holds no validated claims.
	ErrNoClaims = errors.New("no authenticated claims in context")
)

// AuthClaims mirrors the validated claim set without importing the parent
// package, avoiding an import cycle.
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenValidator validates a raw token string into claims. This mirrors the
// session side of the parent package's TokenService.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

type Config struct {
	// Filter skips the middleware when it returns true
	Filter func(*fiber.Ctx) bool
	// SuccessHandler runs after claims were stored in locals
	SuccessHandler fiber.Handler
	// ErrorHandler terminates the request on any extraction or validation
	// failure
	ErrorHandler fiber.ErrorHandler
	// TokenValidator is required
	TokenValidator TokenValidator
	// ContextKey is the locals key claims are stored under
	ContextKey string
	// TokenLookup is "<source>:<name>" with source header, query, or cookie
	TokenLookup string
	// AuthScheme is the expected prefix for header lookups
	AuthScheme string
}

// New returns a fiber middleware enforcing a valid bearer token
func New(config ...Config) fiber.Handler {
	cfg := defaultConfig(config...)

	extractor := buildExtractor(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extractor(c)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)

		return cfg.SuccessHandler(c)
	}
}

// ClaimsFromContext returns the validated claims a previous middleware run
// stored under key.
func ClaimsFromContext(c *fiber.Ctx, key string) (AuthClaims, error) {
	claims, ok := c.Locals(key).(AuthClaims)
	if !ok || claims == nil {
		return nil, ErrNoClaims
	}
	return claims, nil
}

func defaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenValidator == nil {
		panic("BEARER: middleware configuration: TokenValidator is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": fiber.Map{
					"message": "Invalid token",
				},
			})
		}
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

	return cfg
}

type extractorFunc func(*fiber.Ctx) (string, error)

func buildExtractor(lookup, scheme string) extractorFunc {
	source, name, found := strings.Cut(lookup, ":")
	if !found {
		source, name = "header", fiber.HeaderAuthorization
	}

	switch source {
	case "query":
		return func(c *fiber.Ctx) (string, error) {
			token := c.Query(name)
			if token == "" {
				return "", ErrMissingOrMalformed
			}
			return token, nil
		}
	case "cookie":
		return func(c *fiber.Ctx) (string, error) {
			token := c.Cookies(name)
			if token == "" {
				return "", ErrMissingOrMalformed
			}
			return token, nil
		}
	default:
		return func(c *fiber.Ctx) (string, error) {
			return fromAuthHeader(c.Get(name), scheme)
		}
	}
}

func fromAuthHeader(header, scheme string) (string, error) {
	if header == "" {
		return "", ErrMissingOrMalformed
	}

	if scheme == "" {
		return header, nil
	}

	l := len(scheme)
	if len(header) <= l+1 || !strings.EqualFold(header[:l], scheme) || header[l] != ' ' {
		return "", ErrMissingOrMalformed
	}

	return header[l+1:], nil
}
