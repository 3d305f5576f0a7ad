package identity

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds staleness when the configuration does not set one.
const DefaultCacheTTL = time.Minute

// UserCache is a read-through cache of full User snapshots keyed by id.
// The cache is never the source of truth: writers remove entries, they do
// not update them.
type UserCache interface {
	// Get returns the cached snapshot, or nil on miss.
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	// Put stores the full snapshot under the fixed TTL, overwriting any
	// existing entry.
	Put(ctx context.Context, user *User) error
	// Invalidate removes the entry unconditionally; a miss is not an error.
	Invalidate(ctx context.Context, id uuid.UUID) error
}

// CacheClient is the subset of the redis client the cache needs.
type CacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ CacheClient = (*redis.Client)(nil)

// RedisUserCache stores compressed JSON snapshots of users in redis. TTL
// enforcement is the backend's job; this layer never re-checks timestamps.
type RedisUserCache struct {
	client CacheClient
	ttl    time.Duration
	logger Logger
}

var _ UserCache = (*RedisUserCache)(nil)

// NewRedisUserCache returns a cache over client with the TTL from cfg.
func NewRedisUserCache(client CacheClient, cfg Config) *RedisUserCache {
	ttl := cfg.GetCacheTTL()
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		logger: defLogger{},
	}
}

func (c *RedisUserCache) WithLogger(logger Logger) *RedisUserCache {
	c.logger = logger
	return c
}

func (c *RedisUserCache) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	blob, err := c.client.Get(ctx, userCacheKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, wrapUnavailable(err, "user cache read failed")
	}

	user, err := decodeUserBlob(blob)
	if err != nil {
		// A corrupt entry counts as a miss; drop it so the next read
		// repopulates from the store.
		c.logger.Warn("dropping undecodable user cache entry", "id", id.String(), "error", err)
		if err := c.client.Del(ctx, userCacheKey(id)).Err(); err != nil {
			c.logger.Warn("failed to drop corrupt cache entry", "id", id.String(), "error", err)
		}
		return nil, nil
	}

	return user, nil
}

func (c *RedisUserCache) Put(ctx context.Context, user *User) error {
	blob, err := encodeUserBlob(user)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, userCacheKey(user.ID), blob, c.ttl).Err(); err != nil {
		return wrapUnavailable(err, "user cache write failed")
	}

	return nil
}

func (c *RedisUserCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, userCacheKey(id)).Err(); err != nil {
		return wrapUnavailable(err, "user cache invalidation failed")
	}
	return nil
}

func userCacheKey(id uuid.UUID) string {
	return "cache:user:" + id.String()
}

func encodeUserBlob(user *User) ([]byte, error) {
	raw, err := json.Marshal(user)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeUserBlob(blob []byte) (*User, error) {
	zr, err := zlib.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}

	user := &User{}
	if err := json.Unmarshal(raw, user); err != nil {
		return nil, err
	}

	return user, nil
}
