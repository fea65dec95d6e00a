package shop

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside structured errors.
const (
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword   = "EMPTY_PASSWORD"
	TextCodeInvalidToken    = "INVALID_TOKEN"
	TextCodeTokenExpired    = "TOKEN_EXPIRED"
	TextCodeWrongTokenUse   = "WRONG_TOKEN_PURPOSE"
	TextCodeNotOwner        = "NOT_RESOURCE_OWNER"
	TextCodeTooManyAttempts = "TOO_MANY_LOGIN_ATTEMPTS"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound)

// ErrMismatchedHashAndPassword is returned for any failed credential check.
// Unknown identifiers and wrong passwords share this error on purpose so the
// response shape cannot be used to enumerate accounts.
var ErrMismatchedHashAndPassword = goerrors.New(
	"the credentials provided are invalid",
	goerrors.CategoryAuth,
).WithTextCode(TextCodeInvalidCreds).WithCode(goerrors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrTokenMalformed covers signature mismatches, garbage input, and structural
// failures. The message stays generic for every one of them.
var ErrTokenMalformed = goerrors.New("Invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their expiry claim
var ErrTokenExpired = goerrors.New("Invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrWrongTokenPurpose is returned when a session token is presented to the
// verification endpoint or the other way around.
var ErrWrongTokenPurpose = goerrors.New("Invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeWrongTokenUse).
	WithCode(goerrors.CodeUnauthorized)

// ErrNotResourceOwner is the uniform denial for mutations on resources the
// caller does not own. Missing resources answer with the same error so
// existence never leaks to non-owners.
var ErrNotResourceOwner = goerrors.New("not authorized to modify this resource", goerrors.CategoryAuthz).
	WithTextCode(TextCodeNotOwner).
	WithCode(goerrors.CodeForbidden)

// ErrTooManyLoginAttempts is returned once an account hits the cooldown window
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
