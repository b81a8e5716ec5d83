package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore counts events per key inside a rolling expiry window.
type RedisRateLimitStore struct {
	client *redis.Client
}

func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{client: client}
}

func (s *RedisRateLimitStore) Incr(ctx context.Context, key string, window time.Duration) (int, error) {
	redisKey := "ratelimit:" + key
	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, err
	}
	// The window starts with the first event; later hits keep the original expiry.
	if count == 1 && window > 0 {
		_ = s.client.Expire(ctx, redisKey, window).Err()
	}
	return int(count), nil
}
