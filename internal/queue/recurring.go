package queue

import (
	"context"
	"time"

	"FareWatch/pkg/logger"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// recurringDedupIntervals 占位最多保留几个触发周期，持有任务的 worker 崩溃后触发能尽快恢复
const recurringDedupIntervals = 3

// Recurring 周期性向队列投递同一个任务
// 任务以队列名作为去重 key，上一轮还没执行完时本轮投递会被丢弃
type Recurring struct {
	c *cron.Cron
}

// RegisterRecurring 立即投递一次，之后每隔 every 投递一次
func RegisterRecurring(ctx context.Context, q Queue, queue string, every time.Duration, payload func() interface{}) *Recurring {
	if every <= 0 {
		every = time.Minute
	}

	fire := func() {
		ok, err := q.Enqueue(ctx, queue, payload(), EnqueueOptions{
			DedupKey: queue,
			DedupTTL: recurringDedupIntervals * every,
		})
		if err != nil {
			logger.Logger.Error("Failed to enqueue recurring task",
				zap.String("queue", queue),
				zap.Error(err),
			)
			return
		}
		if !ok {
			logger.Logger.Debug("Recurring task still pending, skipped this tick",
				zap.String("queue", queue),
			)
		}
	}

	c := cron.New(cron.WithLocation(time.UTC))
	c.Schedule(cron.Every(every), cron.FuncJob(fire))

	fire()
	c.Start()

	logger.Logger.Info("Recurring task registered",
		zap.String("queue", queue),
		zap.Duration("every", every),
	)
	return &Recurring{c: c}
}

// Stop 停止触发并等待正在执行的投递结束
func (r *Recurring) Stop() {
	if r == nil || r.c == nil {
		return
	}
	<-r.c.Stop().Done()
}
