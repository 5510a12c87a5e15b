package queue

import (
	"context"
	"encoding/json"
	"time"

	"FareWatch/pkg/logger"
	"FareWatch/pkg/metrics"
	"FareWatch/storage/mq"

	"go.uber.org/zap"
)

// RabbitQueue 基于 RabbitMQ 的持久化队列
// 立即任务走默认交换机直接投递到同名队列，延迟任务和重试走 x-delayed-message 交换机
type RabbitQueue struct {
	delayedExchange string
	dedup           DedupStore
	dedupTTL        time.Duration
}

func NewRabbitQueue(delayedExchange string, dedup DedupStore, dedupTTL time.Duration) *RabbitQueue {
	return &RabbitQueue{
		delayedExchange: delayedExchange,
		dedup:           dedup,
		dedupTTL:        dedupTTL,
	}
}

// DeclareQueues 声明本服务用到的队列
func (q *RabbitQueue) DeclareQueues() error {
	return mq.DeclareTopology(q.delayedExchange, QueueAlertScheduler, QueuePriceCheck)
}

func (q *RabbitQueue) Enqueue(ctx context.Context, queue string, payload interface{}, opts EnqueueOptions) (bool, error) {
	ok, err := acquire(ctx, q.dedup, queue, opts.DedupKey, opts.dedupTTL(q.dedupTTL))
	if err != nil || !ok {
		return false, err
	}

	task, err := newTask(queue, payload, opts.DedupKey)
	if err != nil {
		q.releaseKey(ctx, queue, opts.DedupKey)
		return false, err
	}

	if err := q.publish(ctx, task, opts.Delay); err != nil {
		q.releaseKey(ctx, queue, opts.DedupKey)
		return false, err
	}

	metrics.IncTaskEnqueued(queue)
	return true, nil
}

func (q *RabbitQueue) Consume(ctx context.Context, queue string, handler Handler, opts ConsumeOptions) error {
	d := &dispatcher{queue: queue, handler: handler, retry: opts.Retry, dedup: q.dedup}

	return mq.Consume(ctx, mq.ConsumeOptions{
		Queue:       queue,
		ConsumerTag: queue + "-consumer",
		Concurrency: opts.Concurrency,
		Handler: func(ctx context.Context, body []byte) error {
			var task Task
			if err := json.Unmarshal(body, &task); err != nil {
				// 无法解析的消息直接丢弃，避免反复投递
				logger.Logger.Error("Dropping malformed task",
					zap.String("queue", queue),
					zap.Error(err),
				)
				return nil
			}

			retry, delay := d.run(ctx, &task)
			if !retry {
				return nil
			}
			// 重投失败时返回错误，由 mq 层 Nack 重新入队
			return q.publish(context.WithoutCancel(ctx), &task, delay)
		},
	})
}

func (q *RabbitQueue) publish(ctx context.Context, task *Task, delay time.Duration) error {
	if delay > 0 {
		return mq.PublishDelayedMessage(ctx, q.delayedExchange, task.Queue, delay, task)
	}
	return mq.PublishMessage(ctx, "", task.Queue, task)
}

func (q *RabbitQueue) releaseKey(ctx context.Context, queue, key string) {
	if key == "" {
		return
	}
	if err := q.dedup.Release(ctx, dedupKey(queue, key)); err != nil {
		logger.Logger.Warn("Failed to release dedup key after enqueue failure",
			zap.String("queue", queue),
			zap.String("dedup_key", key),
			zap.Error(err),
		)
	}
}
