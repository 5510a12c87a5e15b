package queue

import (
	"context"
	"sync"
	"time"

	"FareWatch/pkg/metrics"
)

// MemoryQueue 进程内队列，用于单进程部署和测试，进程退出后任务丢失
type MemoryQueue struct {
	dedup    DedupStore
	dedupTTL time.Duration

	mu     sync.Mutex
	topics map[string]*memoryTopic
}

type memoryTopic struct {
	mu      sync.Mutex
	tasks   []*Task
	delayed int
	notify  chan struct{}
}

func NewMemoryQueue(dedup DedupStore, dedupTTL time.Duration) *MemoryQueue {
	if dedup == nil {
		dedup = NewMemoryDedupStore()
	}
	return &MemoryQueue{
		dedup:    dedup,
		dedupTTL: dedupTTL,
		topics:   make(map[string]*memoryTopic),
	}
}

func (q *MemoryQueue) topic(name string) *memoryTopic {
	q.mu.Lock()
	defer q.mu.Unlock()

	t, ok := q.topics[name]
	if !ok {
		t = &memoryTopic{notify: make(chan struct{}, 1)}
		q.topics[name] = t
	}
	return t
}

func (q *MemoryQueue) Enqueue(ctx context.Context, queue string, payload interface{}, opts EnqueueOptions) (bool, error) {
	ok, err := acquire(ctx, q.dedup, queue, opts.DedupKey, opts.dedupTTL(q.dedupTTL))
	if err != nil || !ok {
		return false, err
	}

	task, err := newTask(queue, payload, opts.DedupKey)
	if err != nil {
		if opts.DedupKey != "" {
			_ = q.dedup.Release(ctx, dedupKey(queue, opts.DedupKey))
		}
		return false, err
	}

	q.schedule(task, opts.Delay)
	metrics.IncTaskEnqueued(queue)
	return true, nil
}

// Pending 等待执行的任务数（含延迟中的）
func (q *MemoryQueue) Pending(queue string) int {
	t := q.topic(queue)
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks) + t.delayed
}

func (q *MemoryQueue) schedule(task *Task, delay time.Duration) {
	t := q.topic(task.Queue)
	if delay <= 0 {
		t.push(task)
		return
	}

	t.mu.Lock()
	t.delayed++
	t.mu.Unlock()

	time.AfterFunc(delay, func() {
		t.mu.Lock()
		t.delayed--
		t.mu.Unlock()
		t.push(task)
	})
}

func (q *MemoryQueue) Consume(ctx context.Context, queue string, handler Handler, opts ConsumeOptions) error {
	d := &dispatcher{queue: queue, handler: handler, retry: opts.Retry, dedup: q.dedup}
	t := q.topic(queue)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, ok := t.pop(ctx)
				if !ok {
					return
				}
				if retry, delay := d.run(ctx, task); retry {
					q.schedule(task, delay)
				}
			}
		}()
	}

	wg.Wait()
	return ctx.Err()
}

func (t *memoryTopic) push(task *Task) {
	t.mu.Lock()
	t.tasks = append(t.tasks, task)
	t.mu.Unlock()
	t.signal()
}

func (t *memoryTopic) signal() {
	select {
	case t.notify <- struct{}{}:
	default:
	}
}

// pop 阻塞直到取到任务或 ctx 取消
func (t *memoryTopic) pop(ctx context.Context) (*Task, bool) {
	for {
		t.mu.Lock()
		if len(t.tasks) > 0 {
			task := t.tasks[0]
			t.tasks[0] = nil
			t.tasks = t.tasks[1:]
			remaining := len(t.tasks)
			t.mu.Unlock()
			if remaining > 0 {
				t.signal()
			}
			return task, true
		}
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, false
		case <-t.notify:
		}
	}
}
