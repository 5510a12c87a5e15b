package cache

import (
	"context"
	"time"

	"FareWatch/storage/redis"
)

// 基于 SETNX 的占位锁，用于任务去重：同一个 key 在释放或过期前只能被占一次
const (
	lockPrefix = "lock"
)

// TryLock 占位成功返回 true，已被占用返回 false
func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	fullKey := redis.Key(lockPrefix, key)

	ok, err := redis.Client().SetNX(ctx, fullKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func Unlock(ctx context.Context, key string) error {
	return redis.Client().Del(ctx, redis.Key(lockPrefix, key)).Err()
}
