package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"FareWatch/config"
	"FareWatch/internal/cache"
	"FareWatch/pkg/logger"
	"FareWatch/pkg/metrics"
)

const (
	// 计数 key 的存活时间要长于最长的月份，跨月时慢消费的任务不会少算
	quotaCounterTTL = 35 * 24 * time.Hour
	// 达到上限的 80% 开始告警
	quotaWarnRatio = 0.8
)

// CallCounter 原子自增计数器
type CallCounter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

// QuotaDecision 一次准入判断的结果
type QuotaDecision struct {
	Allowed bool  `json:"allowed"`
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}

// QuotaUsage 当月用量
type QuotaUsage struct {
	Month   string `json:"month"`
	Current int64  `json:"current"`
	Limit   int64  `json:"limit"`
	// Remaining limit 为 0（不限）时为 -1
	Remaining int64 `json:"remaining"`
}

// QuotaLimiter 供应商按月调用额度
// 先自增再判断，被拒绝的调用同样计数；并发下可能少量超出，不做分布式锁
type QuotaLimiter struct {
	counter CallCounter
	limit   int64
	now     func() time.Time
}

var (
	quotaLimiter *QuotaLimiter
	quotaOnce    sync.Once
)

// Quota 使用 Redis 计数器和配置中的月度上限
func Quota() *QuotaLimiter {
	quotaOnce.Do(func() {
		quotaLimiter = NewQuotaLimiter(cache.RedisCounter{}, config.Cfg.AmadeusMonthlyLimit)
	})
	return quotaLimiter
}

func NewQuotaLimiter(counter CallCounter, limit int64) *QuotaLimiter {
	if limit < 0 {
		limit = 0
	}
	return &QuotaLimiter{
		counter: counter,
		limit:   limit,
		now:     time.Now,
	}
}

func monthKey(t time.Time) string {
	return "amadeus:calls:" + t.UTC().Format("2006-01")
}

// Admit 为一次供应商调用申请额度，limit 为 0 时不限流也不计数
func (l *QuotaLimiter) Admit(ctx context.Context) (QuotaDecision, error) {
	if l.limit == 0 {
		return QuotaDecision{Allowed: true}, nil
	}

	current, err := l.counter.Incr(ctx, monthKey(l.now()), quotaCounterTTL)
	if err != nil {
		return QuotaDecision{}, fmt.Errorf("increment monthly call counter: %w", err)
	}

	decision := QuotaDecision{
		Allowed: current <= l.limit,
		Current: current,
		Limit:   l.limit,
	}
	metrics.RecordQuotaCall(ctx, !decision.Allowed)
	metrics.SetQuotaUsed(current)

	warnAt := int64(float64(l.limit) * quotaWarnRatio)
	switch {
	case !decision.Allowed:
		logger.Logger.Error("Monthly provider call limit exceeded",
			zap.Int64("current", current),
			zap.Int64("limit", l.limit),
		)
	case current >= warnAt && current < l.limit:
		logger.Logger.Warn("Monthly provider call usage approaching limit",
			zap.Int64("current", current),
			zap.Int64("limit", l.limit),
			zap.Float64("usage_ratio", float64(current)/float64(l.limit)),
		)
	}

	return decision, nil
}

// Usage 读取当月用量，不自增
func (l *QuotaLimiter) Usage(ctx context.Context) (QuotaUsage, error) {
	now := l.now().UTC()
	usage := QuotaUsage{
		Month:     now.Format("2006-01"),
		Limit:     l.limit,
		Remaining: -1,
	}

	current, err := l.counter.Get(ctx, monthKey(now))
	if err != nil {
		return QuotaUsage{}, fmt.Errorf("read monthly call counter: %w", err)
	}
	usage.Current = current

	if l.limit > 0 {
		usage.Remaining = l.limit - current
		if usage.Remaining < 0 {
			usage.Remaining = 0
		}
	}
	return usage, nil
}
