package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"FareWatch/pkg/snowflake"
)

// 队列名
const (
	QueueAlertScheduler = "alert-scheduler"
	QueuePriceCheck     = "price-check"
)

// Task 队列中传递的任务信封
type Task struct {
	ID       string          `json:"id"`
	Queue    string          `json:"queue"`
	Payload  json.RawMessage `json:"payload"`
	DedupKey string          `json:"dedup_key,omitempty"`
	// Attempt 已经执行过的次数，首次投递为 0
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Decode 反序列化 payload
func (t *Task) Decode(v interface{}) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("decode %s task %s: %w", t.Queue, t.ID, err)
	}
	return nil
}

// Handler 返回 nil 或 SkipMessageError 表示结束，其余错误按重试策略处理
type Handler func(ctx context.Context, task *Task) error

type EnqueueOptions struct {
	// DedupKey 非空时，同一队列内同 key 的任务在完成前只会存在一个
	DedupKey string
	// DedupTTL 占位的兜底过期时间，为 0 时使用队列默认值
	DedupTTL time.Duration
	Delay    time.Duration
}

func (o EnqueueOptions) dedupTTL(fallback time.Duration) time.Duration {
	if o.DedupTTL > 0 {
		return o.DedupTTL
	}
	return fallback
}

type ConsumeOptions struct {
	Concurrency int
	Retry       RetryPolicy
}

// Queue 至少一次投递的任务队列
type Queue interface {
	// Enqueue 返回 false 表示被去重丢弃
	Enqueue(ctx context.Context, queue string, payload interface{}, opts EnqueueOptions) (bool, error)
	// Consume 阻塞直到 ctx 取消
	Consume(ctx context.Context, queue string, handler Handler, opts ConsumeOptions) error
}

func newTask(queue string, payload interface{}, dedupKey string) (*Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", queue, err)
	}
	id, err := snowflake.NextID()
	if err != nil {
		return nil, fmt.Errorf("generate task id: %w", err)
	}
	return &Task{
		ID:         strconv.FormatInt(id, 10),
		Queue:      queue,
		Payload:    body,
		DedupKey:   dedupKey,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}
