package cache

import (
	"context"
	"errors"
	"time"

	"FareWatch/storage/redis"

	goredis "github.com/redis/go-redis/v9"
)

// 首次自增时设置过期时间，INCR 与 EXPIRE 在同一个脚本里执行，避免留下永不过期的 key
var incrWithTTL = goredis.NewScript(`
local v = redis.call('INCR', KEYS[1])
if v == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return v
`)

// RedisCounter 共享计数器，key 由调用方拼好（不含全局前缀）
type RedisCounter struct{}

// Incr 原子自增并返回自增后的值
func (RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}
	return incrWithTTL.Run(ctx, redis.Client(), []string{redis.Key(key)}, seconds).Int64()
}

// Get 读取当前值，key 不存在时返回 0
func (RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	v, err := redis.Client().Get(ctx, redis.Key(key)).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return v, err
}
