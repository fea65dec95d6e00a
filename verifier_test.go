package shop_test

import (
	"context"
	"net/url"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	shop "github.com/goliatone/go-shop"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T, users *MockUsers, mail *MockMailer) (*shop.Verifier, shop.TokenService) {
	t.Helper()

	cfg := newTestConfig()
	tokens, err := shop.NewTokenService(cfg, nil)
	require.NoError(t, err)

	return shop.NewVerifier(users, tokens, mail, stubRenderer{}, cfg), tokens
}

func TestVerifierVerificationLink(t *testing.T) {
	users := new(MockUsers)
	mail := new(MockMailer)
	verifier, tokens := newTestVerifier(t, users, mail)

	user := &shop.User{
		ID:       uuid.New(),
		Username: "testuser",
		Email:    "test@example.com",
	}

	link, err := verifier.VerificationLink(user)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "http://localhost:8000/verification?token="))

	// the embedded token must validate as a verification token
	parsed, err := url.Parse(link)
	require.NoError(t, err)

	raw := parsed.Query().Get("token")
	require.NotEmpty(t, raw)

	claims, err := tokens.Validate(raw, shop.PurposeVerification)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID())
}

func TestVerifierRequestVerification(t *testing.T) {
	ctx := context.Background()

	user := &shop.User{
		ID:       uuid.New(),
		Username: "testuser",
		Email:    "test@example.com",
	}

	t.Run("Sends the rendered email", func(t *testing.T) {
		users := new(MockUsers)
		mail := new(MockMailer)
		verifier, _ := newTestVerifier(t, users, mail)

		mail.On("IsEnabled").Return(true).Once()
		mail.On("SendTo", shop.VerificationEmailSubject, mock.Anything, []string{"test@example.com"}).
			Return(nil).Once()

		err := verifier.RequestVerification(ctx, user)
		assert.NoError(t, err)

		mail.AssertExpectations(t)
	})

	t.Run("Disabled mailer is a logged no-op", func(t *testing.T) {
		users := new(MockUsers)
		mail := new(MockMailer)
		verifier, _ := newTestVerifier(t, users, mail)

		mail.On("IsEnabled").Return(false).Once()

		err := verifier.RequestVerification(ctx, user)
		assert.NoError(t, err)

		mail.AssertExpectations(t)
		mail.AssertNotCalled(t, "SendTo", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Delivery failure surfaces", func(t *testing.T) {
		users := new(MockUsers)
		mail := new(MockMailer)
		verifier, _ := newTestVerifier(t, users, mail)

		mail.On("IsEnabled").Return(true).Once()
		mail.On("SendTo", mock.Anything, mock.Anything, mock.Anything).
			Return(goerrors.New("smtp unavailable", goerrors.CategoryOperation)).Once()

		err := verifier.RequestVerification(ctx, user)
		assert.Error(t, err)

		mail.AssertExpectations(t)
	})
}

func TestVerifierConsume(t *testing.T) {
	ctx := context.Background()

	userID := uuid.New()
	user := &shop.User{
		ID:       userID,
		Username: "testuser",
		Email:    "test@example.com",
	}

	identity := testIdentity{id: userID.String(), username: "testuser"}

	t.Run("First visit flips the flag", func(t *testing.T) {
		users := new(MockUsers)
		verifier, tokens := newTestVerifier(t, users, new(MockMailer))

		token, err := tokens.Generate(identity, shop.PurposeVerification)
		require.NoError(t, err)

		users.On("GetByIdentifier", ctx, userID.String()).Return(user, nil).Once()
		users.On("MarkVerified", ctx, userID).Return(true, nil).Once()

		res, err := verifier.Consume(ctx, token)
		require.NoError(t, err)
		assert.False(t, res.AlreadyVerified)
		assert.True(t, res.User.EmailVerified)

		// the loaded record is not mutated in place
		assert.False(t, user.EmailVerified)

		users.AssertExpectations(t)
	})

	t.Run("Second visit reports already verified", func(t *testing.T) {
		users := new(MockUsers)
		verifier, tokens := newTestVerifier(t, users, new(MockMailer))

		token, err := tokens.Generate(identity, shop.PurposeVerification)
		require.NoError(t, err)

		users.On("GetByIdentifier", ctx, userID.String()).Return(user, nil).Once()
		users.On("MarkVerified", ctx, userID).Return(false, nil).Once()

		res, err := verifier.Consume(ctx, token)
		require.NoError(t, err)
		assert.True(t, res.AlreadyVerified)
		assert.True(t, res.User.EmailVerified)

		users.AssertExpectations(t)
	})

	t.Run("Session tokens are rejected", func(t *testing.T) {
		users := new(MockUsers)
		verifier, tokens := newTestVerifier(t, users, new(MockMailer))

		token, err := tokens.Generate(identity, shop.PurposeSession)
		require.NoError(t, err)

		res, err := verifier.Consume(ctx, token)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, shop.ErrWrongTokenPurpose)

		users.AssertNotCalled(t, "MarkVerified", mock.Anything, mock.Anything)
	})

	t.Run("Garbage tokens are rejected", func(t *testing.T) {
		users := new(MockUsers)
		verifier, _ := newTestVerifier(t, users, new(MockMailer))

		res, err := verifier.Consume(ctx, "garbage")
		assert.Nil(t, res)
		assert.True(t, shop.IsMalformedError(err))
	})

	t.Run("Vanished user maps to the generic token error", func(t *testing.T) {
		users := new(MockUsers)
		verifier, tokens := newTestVerifier(t, users, new(MockMailer))

		token, err := tokens.Generate(identity, shop.PurposeVerification)
		require.NoError(t, err)

		users.On("GetByIdentifier", ctx, userID.String()).
			Return(nil, goerrors.New("record not found", goerrors.CategoryNotFound)).Once()

		res, err := verifier.Consume(ctx, token)
		assert.Nil(t, res)
		assert.ErrorIs(t, err, shop.ErrTokenMalformed)

		users.AssertExpectations(t)
	})
}
