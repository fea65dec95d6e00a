package shop

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/goliatone/go-errors"
)

// TemplateRenderer renders a named view into a writer. The fiber template
// engines satisfy this, so the email body and the verification page share one
// engine.
type TemplateRenderer interface {
	Render(out io.Writer, name string, binding any, layout ...string) error
}

// VerificationEmailSubject is the subject line of the verification email
var VerificationEmailSubject = "Account Verification Email"

// VerificationEmailTemplate is the view rendered into the email body
var VerificationEmailTemplate = "email_verification"

// VerificationResult reports what consuming a token did
type VerificationResult struct {
	User *User
	// AlreadyVerified is true when the flag had been flipped by an earlier
	// visit; the call is a no-op in that case.
	AlreadyVerified bool
}

// Verifier owns the email verification flow: it mints single-use-semantics
// tokens into emailed links and flips the account flag when a link is visited.
type Verifier struct {
	users    Users
	tokens   TokenService
	mail     Mailer
	renderer TemplateRenderer
	appHost  string
	logger   Logger
}

// NewVerifier returns a new Verifier
func NewVerifier(users Users, tokens TokenService, mail Mailer, renderer TemplateRenderer, cfg Config) *Verifier {
	return &Verifier{
		users:    users,
		tokens:   tokens,
		mail:     mail,
		renderer: renderer,
		appHost:  cfg.GetAppHost(),
		logger:   defLogger{},
	}
}

func (v *Verifier) WithLogger(logger Logger) *Verifier {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// VerificationLink mints a verification token for the user and embeds it in
// the link the emailed button points at.
func (v *Verifier) VerificationLink(user *User) (string, error) {
	token, err := v.tokens.Generate(identityFromUser(user), PurposeVerification)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/verification?token=%s", v.appHost, url.QueryEscape(token)), nil
}

// RequestVerification renders the verification email for the user and hands
// it to the mail collaborator. Delivery failures surface to the caller.
func (v *Verifier) RequestVerification(ctx context.Context, user *User) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled during verification request")
	default:
	}

	link, err := v.VerificationLink(user)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	err = v.renderer.Render(&body, VerificationEmailTemplate, map[string]any{
		"username": user.Username,
		"link":     link,
	})
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to render verification email")
	}

	if !v.mail.IsEnabled() {
		v.logger.Warn("mail disabled, verification link not delivered", "user_id", user.ID.String(), "link", link)
		return nil
	}

	if err := v.mail.SendTo(VerificationEmailSubject, body.String(), []string{user.Email}); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to send verification email")
	}

	return nil
}

// Consume decodes a verification token, resolves the user, and flips the
// verified flag exactly once. Visiting the same link again reports
// already-verified without error or further mutation.
func (v *Verifier) Consume(ctx context.Context, raw string) (*VerificationResult, error) {
	claims, err := v.tokens.Validate(raw, PurposeVerification)
	if err != nil {
		v.logger.Error("Consume token validation failed", "error", err)
		return nil, err
	}

	user, err := v.users.GetByIdentifier(ctx, claims.UserID())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrTokenMalformed
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user for verification")
	}

	flipped, err := v.users.MarkVerified(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist verified flag")
	}

	// Return a fresh snapshot instead of mutating the loaded record in place.
	verified := *user
	verified.EmailVerified = true

	return &VerificationResult{
		User:            &verified,
		AlreadyVerified: !flipped,
	}, nil
}
