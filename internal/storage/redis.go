package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the set holding published fingerprints.
const DefaultRedisKey = "costanews:published"

// RedisStore keeps fingerprints in a single Redis set.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects using a redis:// URL and pings the server.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisStoreFromClient(client, DefaultRedisKey), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (rs *RedisStore) Contains(ctx context.Context, fingerprint string) (bool, error) {
	ok, err := rs.client.SIsMember(ctx, rs.key, fingerprint).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check fingerprint: %w", err)
	}
	return ok, nil
}

func (rs *RedisStore) Add(ctx context.Context, fingerprint string) error {
	if err := rs.client.SAdd(ctx, rs.key, fingerprint).Err(); err != nil {
		return fmt.Errorf("failed to add fingerprint: %w", err)
	}
	return nil
}

func (rs *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := rs.client.SCard(ctx, rs.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count fingerprints: %w", err)
	}
	return int(n), nil
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
