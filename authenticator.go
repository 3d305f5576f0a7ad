package identity

import (
	"context"
)

// BearerTokenType is the token_type value callers echo back in the
// Authorization header.
const BearerTokenType = "Bearer"

// TokenPair is the credential pair minted at login and refresh time.
// Tokens are stateless; nothing is persisted server side.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Auther composes the token service and the user read path into the
// login/refresh/resolve flows.
type Auther struct {
	users  UserResolver
	tokens TokenService
	logger Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(users UserResolver, cfg Config) *Auther {
	return &Auther{
		users:  users,
		tokens: NewTokenService(cfg, defLogger{}),
		logger: defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	return s
}

// WithTokenService sets a custom token service, e.g. one sharing a signing
// key with another process.
func (s *Auther) WithTokenService(tokens TokenService) *Auther {
	s.tokens = tokens
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokens
}

// Login verifies the credential pair and mints an access+refresh pair
// bound to the user's id. Unknown usernames and wrong passwords produce
// the same error so responses cannot confirm which accounts exist.
func (s *Auther) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	if username == "" || password == "" {
		return nil, ErrMismatchedHashAndPassword
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if IsUserNotFound(err) {
			s.logger.Warn("login attempt for unknown username", "username", username)
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Warn("login attempt with wrong password", "id", user.ID.String())
		return nil, ErrMismatchedHashAndPassword
	}

	pair, err := s.mintPair(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("issued access and refresh tokens", "id", user.ID.String())

	return pair, nil
}

// ResolveUser validates an access token and resolves its subject through
// the cache-aside read path. A token for a soft deleted user fails with
// the not-found kind even before the token itself expires.
func (s *Auther) ResolveUser(ctx context.Context, accessToken string) (*User, error) {
	claims, err := s.tokens.Validate(accessToken, TokenAccess)
	if err != nil {
		return nil, err
	}

	id, err := claims.SubjectUUID()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return s.users.GetByID(ctx, id)
}

// Refresh validates a refresh token and mints a fresh pair for the same
// subject. The refresh token rotates: callers should discard the one they
// presented in favor of the returned pair.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Validate(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}

	id, err := claims.SubjectUUID()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	pair, err := s.mintPair(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("rotated token pair", "id", user.ID.String())

	return pair, nil
}

func (s *Auther) mintPair(user *User) (*TokenPair, error) {
	access, err := s.tokens.Mint(user.ID, TokenAccess)
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokens.Mint(user.ID, TokenRefresh)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    BearerTokenType,
	}, nil
}
