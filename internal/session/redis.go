package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisBackend stores each browser's values in one Redis hash.
type RedisBackend struct {
	client *goredis.Client
	prefix string
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisClient dials addr and verifies the connection.
func NewRedisClient(addr, password string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func NewRedisBackend(client *goredis.Client) *RedisBackend {
	return &RedisBackend{client: client, prefix: "ledgerlite:session:"}
}

func (r *RedisBackend) hash(browserID string) string {
	return r.prefix + browserID
}

func (r *RedisBackend) Load(ctx context.Context, browserID, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, r.hash(browserID), key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget %s: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisBackend) Save(ctx context.Context, browserID, key, value string) error {
	if err := r.client.HSet(ctx, r.hash(browserID), key, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, browserID, key string) error {
	if err := r.client.HDel(ctx, r.hash(browserID), key).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Clear(ctx context.Context, browserID string) error {
	if err := r.client.Del(ctx, r.hash(browserID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
