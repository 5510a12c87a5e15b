package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"FareWatch/pkg/errors"
	"FareWatch/pkg/logger"
	"FareWatch/pkg/response"
	"FareWatch/storage/redis"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 时间窗口
	Window time.Duration
	// 时间窗口内最大请求数
	MaxRequests int
	// 限流键前缀
	KeyPrefix string
}

// AirportSearchRateLimitConfig 机场搜索直接调用供应商，按用户限流
var AirportSearchRateLimitConfig = RateLimitConfig{
	Window:      time.Minute,
	MaxRequests: 30,
	KeyPrefix:   "rate:airports",
}

// AlertWriteRateLimitConfig 提醒的创建和修改
var AlertWriteRateLimitConfig = RateLimitConfig{
	Window:      time.Minute,
	MaxRequests: 20,
	KeyPrefix:   "rate:alerts",
}

// RateLimiter 基于 Redis zset 的滑动窗口限流器
type RateLimiter struct {
	config RateLimitConfig
}

func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{config: config}
}

func (rl *RateLimiter) key(ctx context.Context, c *app.RequestContext) string {
	if userID, ok := GetUserID(ctx, c); ok {
		return redis.Key(rl.config.KeyPrefix, "user", userID)
	}
	return redis.Key(rl.config.KeyPrefix, "ip", c.ClientIP())
}

// Allow 返回是否放行和窗口内的请求数
func (rl *RateLimiter) Allow(ctx context.Context, key string, now time.Time) (bool, int, error) {
	if !redis.Ready() {
		return false, 0, fmt.Errorf("redis not initialized")
	}
	windowStart := now.Add(-rl.config.Window)

	pipe := redis.Client().Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	pipe.ZAdd(ctx, key, redislib.Z{
		Score:  float64(now.UnixNano()),
		Member: now.UnixNano(),
	})
	zcard := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window+10*time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to execute rate limit pipeline: %w", err)
	}

	count := int(zcard.Val())
	return count <= rl.config.MaxRequests, count, nil
}

// RateLimitMiddleware Redis 不可用时放行，只记录日志
func RateLimitMiddleware(config RateLimitConfig) app.HandlerFunc {
	limiter := NewRateLimiter(config)

	return func(ctx context.Context, c *app.RequestContext) {
		now := time.Now()
		allowed, count, err := limiter.Allow(ctx, limiter.key(ctx, c), now)
		if err != nil {
			logger.Logger.Warn("Rate limit check failed, allowing request", zap.Error(err))
			c.Next(ctx)
			return
		}

		remaining := config.MaxRequests - count
		if remaining < 0 {
			remaining = 0
		}
		c.Response.Header.Set("X-RateLimit-Limit", strconv.Itoa(config.MaxRequests))
		c.Response.Header.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Response.Header.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(config.Window).Unix(), 10))

		if !allowed {
			response.Error(ctx, c, errors.TooManyRequests)
			c.Abort()
			return
		}

		c.Next(ctx)
	}
}

func AirportSearchRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(AirportSearchRateLimitConfig)
}

func AlertWriteRateLimitMiddleware() app.HandlerFunc {
	return RateLimitMiddleware(AlertWriteRateLimitConfig)
}
