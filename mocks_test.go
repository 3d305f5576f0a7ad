package identity_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// errOutage stands in for a store or cache connectivity failure.
var errOutage = errors.New("connection refused")

// testConfig implements identity.Config
type testConfig struct {
	signingKey string
	issuer     string
	audience   []string
	accessTTL  time.Duration
	refreshTTL time.Duration
	cacheTTL   time.Duration
}

func newTestConfig() testConfig {
	return testConfig{
		signingKey: "test-signing-key",
		issuer:     "identity-tests",
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		cacheTTL:   time.Minute,
	}
}

func (c testConfig) GetSigningKey() string              { return c.signingKey }
func (c testConfig) GetIssuer() string                  { return c.issuer }
func (c testConfig) GetAudience() []string              { return c.audience }
func (c testConfig) GetAccessTokenTTL() time.Duration   { return c.accessTTL }
func (c testConfig) GetRefreshTokenTTL() time.Duration  { return c.refreshTTL }
func (c testConfig) GetCacheTTL() time.Duration         { return c.cacheTTL }

// MockUserResolver implements identity.UserResolver
type MockUserResolver struct {
	mock.Mock
}

func (m *MockUserResolver) GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*identity.User)
	return user, args.Error(1)
}

func (m *MockUserResolver) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*identity.User)
	return user, args.Error(1)
}

// MockUserCache implements identity.UserCache
type MockUserCache struct {
	mock.Mock
}

func (m *MockUserCache) Get(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*identity.User)
	return user, args.Error(1)
}

func (m *MockUserCache) Put(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// fakeCacheClient is a map backed stand-in for the redis client.
type fakeCacheClient struct {
	mu      sync.Mutex
	entries map[string][]byte
	lastTTL time.Duration
}

func newFakeCacheClient() *fakeCacheClient {
	return &fakeCacheClient{entries: map[string][]byte{}}
}

func (f *fakeCacheClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.entries[key]; ok {
		cmd.SetVal(string(v))
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeCacheClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key)
	blob, ok := value.([]byte)
	if !ok {
		cmd.SetErr(fmt.Errorf("unexpected value type %T", value))
		return cmd
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = append([]byte(nil), blob...)
	f.lastTTL = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeCacheClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.entries[key]; ok {
			delete(f.entries, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeCacheClient) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[key]
	return ok
}

func (f *fakeCacheClient) corrupt(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[key] = []byte("not a zlib stream")
}

var _ identity.CacheClient = (*fakeCacheClient)(nil)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = db.NewCreateTable().
		Model((*identity.User)(nil)).
		IfNotExists().
		Exec(context.Background())
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

func seedUser(t *testing.T, repo identity.Users, username, email, password string) *identity.User {
	t.Helper()

	hash, err := identity.HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Register(context.Background(), &identity.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	require.NoError(t, err)

	return user
}
