package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenService mints and validates the signed tokens this package issues.
type TokenService interface {
	Mint(subject uuid.UUID, kind TokenKind) (string, error)
	MintWithTTL(subject uuid.UUID, kind TokenKind, ttl time.Duration) (string, error)
	Validate(tokenString string, expected TokenKind) (AuthClaims, error)
	SignClaims(claims *TokenClaims) (string, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance. The signing key and
// TTLs come from cfg and are fixed for the life of the service.
func NewTokenService(cfg Config, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		logger:     logger,
	}
}

// Mint creates a signed token bound to subject with the TTL configured for
// the given kind.
func (ts *TokenServiceImpl) Mint(subject uuid.UUID, kind TokenKind) (string, error) {
	ttl := ts.accessTTL
	if kind == TokenRefresh {
		ttl = ts.refreshTTL
	}
	return ts.MintWithTTL(subject, kind, ttl)
}

// MintWithTTL creates a signed token with an explicit TTL. A zero or
// negative TTL produces a token that is already expired; validation will
// reject it.
func (ts *TokenServiceImpl) MintWithTTL(subject uuid.UUID, kind TokenKind, ttl time.Duration) (string, error) {
	if !kind.Valid() {
		return "", errors.New("unknown token kind", errors.CategoryBadInput).
			WithMetadata(map[string]any{"kind": string(kind)})
	}

	now := time.Now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject.String(),
			Audience:  ts.claimAudience(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Typ: kind,
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary token claims using the configured signing key.
func (ts *TokenServiceImpl) SignClaims(claims *TokenClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signedString, nil
}

// Validate parses a token string and checks signature, structure, expiry,
// and kind. Every rejection surfaces as the same invalid-token error; the
// specific reason only reaches the logger.
func (ts *TokenServiceImpl) Validate(tokenString string, expected TokenKind) (AuthClaims, error) {
	parserOptions := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		ts.logger.Warn("token rejected during parse", "error", err)
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		ts.logger.Warn("token claims could not be decoded")
		return nil, ErrTokenInvalid
	}

	// A refresh token presented where an access token is expected (or the
	// reverse) is a validation failure, never a silent coercion.
	if claims.Typ != expected {
		ts.logger.Warn("token kind mismatch", "expected", string(expected), "got", string(claims.Typ))
		return nil, ErrTokenInvalid
	}

	if _, err := claims.SubjectUUID(); err != nil {
		ts.logger.Warn("token subject is not a valid user id", "error", err)
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func (ts *TokenServiceImpl) claimAudience() jwt.ClaimStrings {
	if len(ts.audience) == 0 {
		return nil
	}
	aud := make(jwt.ClaimStrings, len(ts.audience))
	copy(aud, ts.audience)
	return aud
}
