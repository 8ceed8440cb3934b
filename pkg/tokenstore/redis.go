package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "finance:access_token"

// RedisStore keeps the token under a single Redis key, letting several
// processes on different hosts share one session.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Get(ctx context.Context) (string, error) {
	tok, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", s.key, err)
	}
	if tok == "" {
		return "", ErrNoToken
	}
	return tok, nil
}

// Set stores the token without expiry; the server decides validity.
func (s *RedisStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	return s.client.Set(ctx, s.key, token, 0).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
