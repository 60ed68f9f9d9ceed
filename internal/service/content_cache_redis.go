package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisContentCacheStore struct {
	client *redis.Client
	prefix string
}

func NewRedisContentCacheStore(client *redis.Client, prefix string) *RedisContentCacheStore {
	if prefix == "" {
		prefix = "content_cache"
	}
	return &RedisContentCacheStore{client: client, prefix: prefix}
}

func (s *RedisContentCacheStore) dataKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

func (s *RedisContentCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.dataKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("content cache get: %w", err)
	}
	return val, true, nil
}

func (s *RedisContentCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.dataKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("content cache set: %w", err)
	}
	return nil
}

func (s *RedisContentCacheStore) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	dataKeys := make([]string, len(keys))
	for i, key := range keys {
		dataKeys[i] = s.dataKey(key)
	}
	if err := s.client.Del(ctx, dataKeys...).Err(); err != nil {
		return fmt.Errorf("content cache invalidate: %w", err)
	}
	return nil
}
