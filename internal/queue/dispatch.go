package queue

import (
	"context"
	"time"

	"FareWatch/pkg/errors"
	"FareWatch/pkg/logger"
	"FareWatch/pkg/metrics"

	"go.uber.org/zap"
)

// 任务结果
const (
	outcomeCompleted = "completed"
	outcomeSkipped   = "skipped"
	outcomeRetry     = "retry"
	outcomeAbandoned = "abandoned"
)

// dispatcher 执行一次任务并决定后续：结束、重试或放弃
// 去重占位在任务结束或放弃时释放，重试期间保持占用
type dispatcher struct {
	queue   string
	handler Handler
	retry   RetryPolicy
	dedup   DedupStore
}

// run 返回 true 表示需要在 delay 后重新投递，task.Attempt 已经递增
func (d *dispatcher) run(ctx context.Context, task *Task) (retry bool, delay time.Duration) {
	start := time.Now()
	err := d.handler(ctx, task)
	task.Attempt++

	outcome := outcomeCompleted
	switch {
	case err == nil:
	case errors.IsSkipMessageError(err):
		outcome = outcomeSkipped
		logger.Logger.Info("Task skipped",
			zap.String("queue", d.queue),
			zap.String("task_id", task.ID),
			zap.String("reason", err.Error()),
		)
	case d.retry.ShouldRetry(task.Attempt):
		outcome = outcomeRetry
		delay = d.retry.Backoff(task.Attempt)
		metrics.IncTaskRetry(d.queue)
		logger.Logger.Warn("Task failed, scheduling retry",
			zap.String("queue", d.queue),
			zap.String("task_id", task.ID),
			zap.Int("attempt", task.Attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	default:
		outcome = outcomeAbandoned
		logger.Logger.Error("Task failed permanently, giving up",
			zap.String("queue", d.queue),
			zap.String("task_id", task.ID),
			zap.String("dedup_key", task.DedupKey),
			zap.Int("attempt", task.Attempt),
			zap.Error(err),
		)
	}

	metrics.ObserveTask(d.queue, outcome, time.Since(start))

	if outcome == outcomeRetry {
		return true, delay
	}
	d.release(ctx, task)
	return false, 0
}

func (d *dispatcher) release(ctx context.Context, task *Task) {
	if task.DedupKey == "" || d.dedup == nil {
		return
	}
	if err := d.dedup.Release(context.WithoutCancel(ctx), dedupKey(d.queue, task.DedupKey)); err != nil {
		logger.Logger.Warn("Failed to release dedup key",
			zap.String("queue", d.queue),
			zap.String("dedup_key", task.DedupKey),
			zap.Error(err),
		)
	}
}

// acquire 入队前占位，返回 false 表示已有同 key 任务
func acquire(ctx context.Context, store DedupStore, queue, key string, ttl time.Duration) (bool, error) {
	if key == "" || store == nil {
		return true, nil
	}
	ok, err := store.Acquire(ctx, dedupKey(queue, key), ttl)
	if err != nil {
		return false, err
	}
	if !ok {
		metrics.IncTaskDeduplicated(queue)
		logger.Logger.Debug("Task deduplicated",
			zap.String("queue", queue),
			zap.String("dedup_key", key),
		)
	}
	return ok, nil
}
