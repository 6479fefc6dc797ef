package repository

import (
	"context"
	"time"

	"learnhub_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisQuizCache 基于Redis的测验缓存。缓存故障一律按未命中处理，不影响主流程
type RedisQuizCache struct {
	client *redis.Client
}

func NewRedisQuizCache(client *redis.Client) *RedisQuizCache {
	return &RedisQuizCache{client: client}
}

func (c *RedisQuizCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logger.Log.Warn("quiz cache read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return val, true
}

func (c *RedisQuizCache) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Log.Warn("quiz cache write failed", zap.String("key", key), zap.Error(err))
	}
}
