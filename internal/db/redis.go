package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmhlko/post-feed/internal/config"
	"github.com/redis/go-redis/v9"
)

// KEYS[1] slot key, ARGV[1] expected hash, ARGV[2] next hash ("" clears),
// ARGV[3] ttl in milliseconds.
var swapRefreshLua = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current or current ~= ARGV[1] then
  return 0
end
if ARGV[2] == "" then
  redis.call("DEL", KEYS[1])
else
  redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
end
return 1
`)

// RedisRefreshStore keeps the per-user refresh hash slot in Redis. Keys
// expire with the refresh token lifetime.
type RedisRefreshStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func NewRedisRefreshStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisRefreshStore {
	if prefix == "" {
		prefix = "postfeed"
	}
	return &RedisRefreshStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisRefreshStore) key(userID string) string {
	return s.prefix + ":refresh:" + userID
}

func (s *RedisRefreshStore) GetRefreshHash(ctx context.Context, userID string) (string, bool, error) {
	hash, err := s.client.Get(ctx, s.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return hash, true, nil
}

func (s *RedisRefreshStore) UpdateRefreshHash(ctx context.Context, userID string, hash *string) error {
	if hash == nil {
		return s.client.Del(ctx, s.key(userID)).Err()
	}
	return s.client.Set(ctx, s.key(userID), *hash, s.ttl).Err()
}

func (s *RedisRefreshStore) SwapRefreshHash(ctx context.Context, userID, expected string, next *string) (bool, error) {
	nextValue := ""
	if next != nil {
		nextValue = *next
	}
	res, err := swapRefreshLua.Run(ctx, s.client, []string{s.key(userID)}, expected, nextValue, s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}
