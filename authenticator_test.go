package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func authUser(t *testing.T, username, password string) *identity.User {
	t.Helper()

	hash, err := identity.HashPassword(password)
	require.NoError(t, err)

	return &identity.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
	}
}

func TestAuther_Login(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	user := authUser(t, "pepe", "super secret")

	t.Run("mints a token pair for valid credentials", func(t *testing.T) {
		users := &MockUserResolver{}
		users.On("GetByUsername", ctx, "pepe").Return(user, nil)

		auther := identity.NewAuthenticator(users, cfg)

		pair, err := auther.Login(ctx, "pepe", "super secret")

		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.Equal(t, identity.BearerTokenType, pair.TokenType)
		assert.NotEmpty(t, pair.AccessToken)
		assert.NotEmpty(t, pair.RefreshToken)
		assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

		access, err := auther.TokenService().Validate(pair.AccessToken, identity.TokenAccess)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), access.Subject())

		refresh, err := auther.TokenService().Validate(pair.RefreshToken, identity.TokenRefresh)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), refresh.Subject())

		users.AssertExpectations(t)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		users := &MockUserResolver{}
		users.On("GetByUsername", ctx, "nobody").Return(nil, identity.ErrUserNotFound)
		users.On("GetByUsername", ctx, "pepe").Return(user, nil)

		auther := identity.NewAuthenticator(users, cfg)

		_, unknownErr := auther.Login(ctx, "nobody", "super secret")
		_, wrongPassErr := auther.Login(ctx, "pepe", "wrong secret")

		assert.ErrorIs(t, unknownErr, identity.ErrMismatchedHashAndPassword)
		assert.ErrorIs(t, wrongPassErr, identity.ErrMismatchedHashAndPassword)
		assert.Equal(t, unknownErr.Error(), wrongPassErr.Error())
		assert.True(t, identity.IsInvalidCredentials(unknownErr))
		assert.True(t, identity.IsInvalidCredentials(wrongPassErr))
	})

	t.Run("rejects empty credentials without touching the store", func(t *testing.T) {
		users := &MockUserResolver{}
		auther := identity.NewAuthenticator(users, cfg)

		_, err := auther.Login(ctx, "", "super secret")
		assert.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)

		_, err = auther.Login(ctx, "pepe", "")
		assert.ErrorIs(t, err, identity.ErrMismatchedHashAndPassword)

		users.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	})

	t.Run("store failures surface as-is", func(t *testing.T) {
		users := &MockUserResolver{}
		users.On("GetByUsername", ctx, "pepe").Return(nil, errOutage)

		auther := identity.NewAuthenticator(users, cfg)

		_, err := auther.Login(ctx, "pepe", "super secret")

		assert.ErrorIs(t, err, errOutage)
		assert.False(t, identity.IsInvalidCredentials(err))
	})
}

func TestAuther_ResolveUser(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	user := authUser(t, "pepe", "super secret")

	t.Run("resolves the token subject", func(t *testing.T) {
		users := &MockUserResolver{}
		users.On("GetByUsername", ctx, "pepe").Return(user, nil)
		users.On("GetByID", ctx, user.ID).Return(user, nil)

		auther := identity.NewAuthenticator(users, cfg)

		pair, err := auther.Login(ctx, "pepe", "super secret")
		require.NoError(t, err)

		got, err := auther.ResolveUser(ctx, pair.AccessToken)

		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		users.AssertExpectations(t)
	})

	t.Run("rejects a refresh token used for access", func(t *testing.T) {
		users := &MockUserResolver{}
		users.On("GetByUsername", ctx, "pepe").Return(user, nil)

		auther := identity.NewAuthenticator(users, cfg)

		pair, err := auther.Login(ctx, "pepe", "super secret")
		require.NoError(t, err)

		got, err := auther.ResolveUser(ctx, pair.RefreshToken)

		assert.Nil(t, got)
		assert.True(t, identity.IsInvalidToken(err))
		users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("rejects an expired access token", func(t *testing.T) {
		users := &MockUserResolver{}
		auther := identity.NewAuthenticator(users, cfg)

		expired, err := auther.TokenService().MintWithTTL(user.ID, identity.TokenAccess, -time.Minute)
		require.NoError(t, err)

		got, err := auther.ResolveUser(ctx, expired)

		assert.Nil(t, got)
		assert.True(t, identity.IsInvalidToken(err))
	})

	t.Run("valid token for a deleted user fails as not found", func(t *testing.T) {
		users := &MockUserResolver{}
		users.On("GetByID", ctx, user.ID).Return(nil, identity.ErrUserNotFound)

		auther := identity.NewAuthenticator(users, cfg)

		token, err := auther.TokenService().Mint(user.ID, identity.TokenAccess)
		require.NoError(t, err)

		got, err := auther.ResolveUser(ctx, token)

		assert.Nil(t, got)
		assert.True(t, identity.IsUserNotFound(err))
	})
}

func TestAuther_Refresh(t *testing.T) {
	ctx := context.Background()
	cfg := newTestConfig()
	user := authUser(t, "pepe", "super secret")

	t.Run("rotates the full pair", func(t *testing.T) {
		users := &MockUserResolver{}
		users.On("GetByUsername", ctx, "pepe").Return(user, nil)
		users.On("GetByID", ctx, user.ID).Return(user, nil)

		auther := identity.NewAuthenticator(users, cfg)

		pair, err := auther.Login(ctx, "pepe", "super secret")
		require.NoError(t, err)

		// Signed payloads embed issue time at second granularity; step past
		// it so the rotated pair cannot collide with the original.
		time.Sleep(1100 * time.Millisecond)

		rotated, err := auther.Refresh(ctx, pair.RefreshToken)

		require.NoError(t, err)
		assert.NotEqual(t, pair.AccessToken, rotated.AccessToken)
		assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

		// Both halves of the new pair are usable.
		_, err = auther.TokenService().Validate(rotated.AccessToken, identity.TokenAccess)
		assert.NoError(t, err)
		_, err = auther.TokenService().Validate(rotated.RefreshToken, identity.TokenRefresh)
		assert.NoError(t, err)
	})

	t.Run("rejects an access token used for refresh", func(t *testing.T) {
		users := &MockUserResolver{}
		users.On("GetByUsername", ctx, "pepe").Return(user, nil)

		auther := identity.NewAuthenticator(users, cfg)

		pair, err := auther.Login(ctx, "pepe", "super secret")
		require.NoError(t, err)

		rotated, err := auther.Refresh(ctx, pair.AccessToken)

		assert.Nil(t, rotated)
		assert.True(t, identity.IsInvalidToken(err))
	})

	t.Run("rejects refresh for a deleted user", func(t *testing.T) {
		users := &MockUserResolver{}
		users.On("GetByID", ctx, user.ID).Return(nil, identity.ErrUserNotFound)

		auther := identity.NewAuthenticator(users, cfg)

		token, err := auther.TokenService().Mint(user.ID, identity.TokenRefresh)
		require.NoError(t, err)

		rotated, err := auther.Refresh(ctx, token)

		assert.Nil(t, rotated)
		assert.True(t, identity.IsUserNotFound(err))
	})
}
