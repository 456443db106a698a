package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopify-tenant-sync/internal/ports"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const lockExtendScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

// NewRedisClient parses url and verifies the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// RedisLocker is a single-instance SET NX lock with token-checked release
type RedisLocker struct {
	client *redis.Client
	script *redis.Script
	extend *redis.Script
	prefix string
}

var _ ports.TenantLocker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker whose keys live under prefix
func NewRedisLocker(client *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		extend: redis.NewScript(lockExtendScript),
		prefix: prefix,
	}
}

// TryLock acquires key for ttl
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return token, ok, nil
}

// Release deletes key only if it still holds token
func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	if err := l.script.Run(ctx, l.client, []string{l.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Extend resets the ttl of key if it still holds token
func (l *RedisLocker) Extend(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return false, errors.New("lock ttl must be positive")
	}
	n, err := l.extend.Run(ctx, l.client, []string{l.prefix + key}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock: %w", err)
	}
	return n == 1, nil
}

// RedisStateStore keeps OAuth state nonces in Redis
type RedisStateStore struct {
	client *redis.Client
	prefix string
}

var _ ports.OAuthStateStore = (*RedisStateStore)(nil)

// NewRedisStateStore creates a state store whose keys live under prefix
func NewRedisStateStore(client *redis.Client, prefix string) *RedisStateStore {
	return &RedisStateStore{client: client, prefix: prefix}
}

// Save binds state to shop for ttl
func (s *RedisStateStore) Save(ctx context.Context, state string, shop string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+state, shop, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// Consume reads and deletes state atomically
func (s *RedisStateStore) Consume(ctx context.Context, state string) (string, error) {
	shop, err := s.client.GetDel(ctx, s.prefix+state).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume oauth state: %w", err)
	}
	return shop, nil
}

// RedisDeduplicator remembers webhook delivery ids in Redis
type RedisDeduplicator struct {
	client *redis.Client
	prefix string
}

var _ ports.WebhookDeduplicator = (*RedisDeduplicator)(nil)

// NewRedisDeduplicator creates a deduplicator whose keys live under prefix
func NewRedisDeduplicator(client *redis.Client, prefix string) *RedisDeduplicator {
	return &RedisDeduplicator{client: client, prefix: prefix}
}

// FirstSeen records id and reports whether it was new
func (d *RedisDeduplicator) FirstSeen(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" {
		return true, nil
	}
	ok, err := d.client.SetNX(ctx, d.prefix+id, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record webhook id: %w", err)
	}
	return ok, nil
}
