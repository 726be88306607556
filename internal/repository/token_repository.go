package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrilink/crm-sync/internal/crm"
)

const defaultTokenKey = "crm:access_token"

type redisTokenStore struct {
	client *redis.Client
	key    string
}

// NewRedisTokenStore returns a Redis-backed crm.TokenStore so the access
// token survives process restarts. TTL handling is delegated to Redis.
func NewRedisTokenStore(client *redis.Client, key string) crm.TokenStore {
	if key == "" {
		key = defaultTokenKey
	}
	return &redisTokenStore{client: client, key: key}
}

func (s *redisTokenStore) Get(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *redisTokenStore) Set(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key, token, ttl).Err()
}

func (s *redisTokenStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
