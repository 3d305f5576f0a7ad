package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind tags a token as usable for resource access or for refresh
// only. The kind is always explicit in the payload, never inferred.
type TokenKind string

const (
	// TokenAccess is the short-lived credential authorizing resource access.
	TokenAccess TokenKind = "A"
	// TokenRefresh is the longer-lived credential used only to mint new
	// access tokens.
	TokenRefresh TokenKind = "R"
)

// Valid reports whether k is one of the known token kinds.
func (k TokenKind) Valid() bool {
	return k == TokenAccess || k == TokenRefresh
}

// AuthClaims represents the validated payload of an issued token
type AuthClaims interface {
	Subject() string
	SubjectUUID() (uuid.UUID, error)
	Kind() TokenKind
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenClaims is the concrete implementation of AuthClaims
type TokenClaims struct {
	jwt.RegisteredClaims
	Typ TokenKind `json:"typ,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// SubjectUUID parses the subject claim as a user identifier
func (c *TokenClaims) SubjectUUID() (uuid.UUID, error) {
	return uuid.Parse(c.RegisteredClaims.Subject)
}

// Kind returns the token kind claim
func (c *TokenClaims) Kind() TokenKind {
	return c.Typ
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
