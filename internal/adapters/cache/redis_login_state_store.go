package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ikidnapmyself/pp-api/internal/ports"
	"github.com/redis/go-redis/v9"
)

// RedisLoginStateStore stores short-lived anti-CSRF state for login redirects.
type RedisLoginStateStore struct {
	client *redis.Client
}

func NewRedisLoginStateStore(client *redis.Client) *RedisLoginStateStore {
	return &RedisLoginStateStore{client: client}
}

func (s *RedisLoginStateStore) Put(ctx context.Context, state string, value ports.LoginState, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, "login:state:"+state, raw, ttl).Err()
}

func (s *RedisLoginStateStore) Get(ctx context.Context, state string) (*ports.LoginState, error) {
	raw, err := s.client.Get(ctx, "login:state:"+state).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out ports.LoginState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RedisLoginStateStore) Delete(ctx context.Context, state string) error {
	return s.client.Del(ctx, "login:state:"+state).Err()
}
