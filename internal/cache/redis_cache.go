package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"retailstore/backend/internal/domain"
)

func NewRedisClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

type RedisFinancialsCache struct {
	client *redis.Client
	prefix string
}

func NewRedisFinancialsCache(client *redis.Client, prefix string) *RedisFinancialsCache {
	return &RedisFinancialsCache{client: client, prefix: prefix}
}

func (c *RedisFinancialsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisFinancialsCache) Get(ctx context.Context, key string) (*domain.Financials, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var snapshot domain.Financials
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil, false, err
	}
	return &snapshot, true, nil
}

func (c *RedisFinancialsCache) Set(ctx context.Context, key string, value *domain.Financials, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, payload, ttl).Err()
}
