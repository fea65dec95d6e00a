package bearer_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-shop/middleware/bearer"
)

type staticClaims struct {
	subject string
}

func (c staticClaims) Subject() string     { return c.subject }
func (c staticClaims) UserID() string      { return c.subject }
func (c staticClaims) Username() string    { return "testuser" }
func (c staticClaims) Expires() time.Time  { return time.Now().Add(time.Hour) }
func (c staticClaims) IssuedAt() time.Time { return time.Now() }

type staticValidator struct {
	accept string
	claims bearer.AuthClaims
}

func (v staticValidator) Validate(raw string) (bearer.AuthClaims, error) {
	if raw != v.accept {
		return nil, errors.New("invalid token")
	}
	return v.claims, nil
}

func newBearerApp(cfg bearer.Config) *fiber.App {
	app := fiber.New()

	app.Get("/protected", bearer.New(cfg), func(c *fiber.Ctx) error {
		claims, err := bearer.ClaimsFromContext(c, "user")
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"subject": claims.Subject()})
	})

	return app
}

func TestBearerMiddleware(t *testing.T) {
	validator := staticValidator{
		accept: "good-token",
		claims: staticClaims{subject: "user-1"},
	}

	t.Run("Missing header answers 401 with a challenge", func(t *testing.T) {
		app := newBearerApp(bearer.Config{TokenValidator: validator, ContextKey: "user"})

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
		require.NoError(t, err)

		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "Bearer", res.Header.Get(fiber.HeaderWWWAuthenticate))
	})

	t.Run("Wrong scheme is rejected", func(t *testing.T) {
		app := newBearerApp(bearer.Config{TokenValidator: validator, ContextKey: "user"})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Basic good-token")

		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("Invalid token is rejected", func(t *testing.T) {
		app := newBearerApp(bearer.Config{TokenValidator: validator, ContextKey: "user"})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer bad-token")

		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("Valid token passes claims to the handler", func(t *testing.T) {
		app := newBearerApp(bearer.Config{TokenValidator: validator, ContextKey: "user"})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer good-token")

		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("Case insensitive scheme", func(t *testing.T) {
		app := newBearerApp(bearer.Config{TokenValidator: validator, ContextKey: "user"})

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(fiber.HeaderAuthorization, "bearer good-token")

		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("Query lookup", func(t *testing.T) {
		app := newBearerApp(bearer.Config{
			TokenValidator: validator,
			ContextKey:     "user",
			TokenLookup:    "query:token",
		})

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected?token=good-token", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("Filter skips the middleware", func(t *testing.T) {
		app := fiber.New()
		app.Get("/open", bearer.New(bearer.Config{
			TokenValidator: validator,
			Filter:         func(c *fiber.Ctx) bool { return true },
		}), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})

		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	t.Run("Missing validator panics", func(t *testing.T) {
		assert.Panics(t, func() {
			bearer.New(bearer.Config{})
		})
	})
}
