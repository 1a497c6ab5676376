package github

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// TokenCache stores installation tokens until shortly before they expire.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}

func tokenCacheKey(installationID int64) string {
	return fmt.Sprintf("installation:%d", installationID)
}

// RedisTokenCache shares installation tokens between API replicas.
type RedisTokenCache struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisTokenCache connects to the Redis server at url and verifies it
// answers.
func NewRedisTokenCache(ctx context.Context, url string) (*RedisTokenCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisTokenCache(client), nil
}

func newRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{
		client:  client,
		prefix:  "kubidu:github:",
		timeout: 250 * time.Millisecond,
	}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	tok, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return tok, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Set(ctx, c.prefix+key, token, ttl).Err()
}

func (c *RedisTokenCache) Close() error {
	return c.client.Close()
}

// memoryTokenCache is used when no Redis is configured.
type memoryTokenCache struct {
	mu      sync.Mutex
	entries map[string]cachedToken
	now     func() time.Time
}

type cachedToken struct {
	token   string
	expires time.Time
}

func newMemoryTokenCache() *memoryTokenCache {
	return &memoryTokenCache{entries: make(map[string]cachedToken), now: time.Now}
}

func (c *memoryTokenCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false, nil
	}
	return e.token, true, nil
}

func (c *memoryTokenCache) Set(_ context.Context, key, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedToken{token: token, expires: c.now().Add(ttl)}
	return nil
}
