package store

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces a per-caller token budget backed by Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int // max tokens allowed per caller
}

func NewRedisLimiter(client *redis.Client, limit int) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
	}
}

func (r *RedisLimiter) CheckLimit(ctx context.Context, callerID string) (bool, error) {
	val, err := r.client.Get(ctx, "usage:"+callerID).Result()
	if err == redis.Nil {
		return true, nil // no usage yet
	}
	if err != nil {
		return false, err
	}
	usage, _ := strconv.Atoi(val)
	return usage < r.limit, nil
}

func (r *RedisLimiter) Increment(ctx context.Context, callerID string, tokens int) error {
	return r.client.IncrBy(ctx, "usage:"+callerID, int64(tokens)).Err()
}
