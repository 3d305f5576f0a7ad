package identity

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidCreds marks login failures; one code for unknown user
	// and wrong password so responses cannot be used for enumeration.
	TextCodeInvalidCreds = "INVALID_CREDENTIALS"
	// TextCodeInvalidToken marks every token rejection: bad signature,
	// malformed payload, expiry, or kind mismatch.
	TextCodeInvalidToken = "INVALID_TOKEN"
	// TextCodeUserNotFound marks absent and soft deleted users alike.
	TextCodeUserNotFound = "USER_NOT_FOUND"
	// TextCodeEmptyPassword marks an empty password passed to the hasher.
	TextCodeEmptyPassword = "EMPTY_PASSWORD"
	// TextCodeDuplicateIdentity marks username/email uniqueness violations.
	TextCodeDuplicateIdentity = "DUPLICATE_IDENTITY"
	// TextCodeUnavailable marks store or cache connectivity failures.
	TextCodeUnavailable = "BACKEND_UNAVAILABLE"
)

// ErrMismatchedHashAndPassword is the single error for failed logins.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenInvalid covers signature, structure, expiry, and kind failures.
// The reason is logged, never surfaced, to avoid aiding forgery attempts.
var ErrTokenInvalid = goerrors.New("the token provided is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserNotFound covers absent users and soft deleted users; callers
// cannot tell the two apart.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrNoEmptyString rejects empty passwords at the hasher boundary.
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(goerrors.CodeBadRequest)

// IsInvalidCredentials reports whether err is a failed-login outcome.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, TextCodeInvalidCreds)
}

// IsInvalidToken reports whether err is a token rejection.
func IsInvalidToken(err error) bool {
	return hasTextCode(err, TextCodeInvalidToken)
}

// IsUserNotFound reports whether err unifies to the not-found outcome.
func IsUserNotFound(err error) bool {
	return hasTextCode(err, TextCodeUserNotFound)
}

// IsUnavailable reports whether err is a store/cache connectivity failure
// that the caller may retry.
func IsUnavailable(err error) bool {
	return hasTextCode(err, TextCodeUnavailable)
}

// IsDuplicateIdentity reports whether err is a username/email uniqueness
// violation surfaced by the store.
func IsDuplicateIdentity(err error) bool {
	return hasTextCode(err, TextCodeDuplicateIdentity)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}

func wrapUnavailable(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
		WithTextCode(TextCodeUnavailable)
}
