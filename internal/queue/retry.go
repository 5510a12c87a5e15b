package queue

import (
	"time"
)

// RetryPolicy Attempts 为总执行次数（含首次），BaseDelay 每次重试翻倍，不超过 MaxDelay
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Backoff 第 retry 次重试前的等待时间，retry 从 1 开始
func (p RetryPolicy) Backoff(retry int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Minute
	}
	maxD := p.MaxDelay
	if maxD <= 0 {
		maxD = 15 * time.Minute
	}

	d := base
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= maxD {
			return maxD
		}
	}
	if d > maxD {
		d = maxD
	}
	return d
}

// ShouldRetry attempt 为已执行次数
func (p RetryPolicy) ShouldRetry(attempt int) bool {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	return attempt < attempts
}
