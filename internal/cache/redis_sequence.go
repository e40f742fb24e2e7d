package cache

import (
	"context"

	redis "github.com/redis/go-redis/v9"
)

// RedisSequence numbers receipts with INCR so several processes share one counter.
type RedisSequence struct {
	client *redis.Client
	key    string
}

func NewRedisSequence(client *redis.Client, key string) *RedisSequence {
	return &RedisSequence{client: client, key: key}
}

func (s *RedisSequence) Next(ctx context.Context) (int64, error) {
	return s.client.Incr(ctx, s.key).Result()
}

func (s *RedisSequence) Reset(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
