package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeCounter struct {
	mu     sync.Mutex
	values map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{values: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCounter) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	c.values[key]++
	if c.values[key] == 1 {
		c.ttls[key] = ttl
	}
	return c.values[key], nil
}

func (c *fakeCounter) Get(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return 0, c.err
	}
	return c.values[key], nil
}

func TestQuotaLimiterHardCeiling(t *testing.T) {
	t.Parallel()

	counter := newFakeCounter()
	l := NewQuotaLimiter(counter, 3)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Admit(ctx)
		if err != nil {
			t.Fatalf("Admit() error = %v", err)
		}
		if !d.Allowed || d.Current != int64(i) || d.Limit != 3 {
			t.Fatalf("call %d: %+v, want allowed", i, d)
		}
	}

	d, err := l.Admit(ctx)
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if d.Allowed || d.Current != 4 {
		t.Fatalf("call 4: %+v, want denied with current=4", d)
	}

	// 被拒绝的调用同样计数
	d, _ = l.Admit(ctx)
	if d.Allowed || d.Current != 5 {
		t.Fatalf("call 5: %+v, want denied with current=5", d)
	}
}

func TestQuotaLimiterDisabled(t *testing.T) {
	t.Parallel()

	counter := newFakeCounter()
	l := NewQuotaLimiter(counter, 0)

	for i := 0; i < 10; i++ {
		d, err := l.Admit(context.Background())
		if err != nil || !d.Allowed {
			t.Fatalf("Admit() = %+v, %v, want allowed", d, err)
		}
	}
	if len(counter.values) != 0 {
		t.Fatalf("counter touched with limit disabled: %v", counter.values)
	}
}

func TestQuotaLimiterMonthBucketAndTTL(t *testing.T) {
	t.Parallel()

	counter := newFakeCounter()
	l := NewQuotaLimiter(counter, 100)
	now := time.Date(2025, 1, 31, 23, 59, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if _, err := l.Admit(context.Background()); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := l.Admit(context.Background()); err != nil {
		t.Fatal(err)
	}

	if counter.values["amadeus:calls:2025-01"] != 1 || counter.values["amadeus:calls:2025-02"] != 1 {
		t.Fatalf("unexpected buckets: %v", counter.values)
	}
	if ttl := counter.ttls["amadeus:calls:2025-01"]; ttl < 31*24*time.Hour {
		t.Fatalf("ttl = %v, want longer than any month", ttl)
	}
}

func TestQuotaLimiterCounterError(t *testing.T) {
	t.Parallel()

	counter := newFakeCounter()
	counter.err = errors.New("redis down")
	l := NewQuotaLimiter(counter, 10)

	if _, err := l.Admit(context.Background()); err == nil {
		t.Fatal("expected error when the counter fails")
	}
}

func TestQuotaLimiterUsage(t *testing.T) {
	t.Parallel()

	counter := newFakeCounter()
	l := NewQuotaLimiter(counter, 2)
	l.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

	for i := 0; i < 3; i++ {
		_, _ = l.Admit(context.Background())
	}

	usage, err := l.Usage(context.Background())
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	if usage.Month != "2025-06" || usage.Current != 3 || usage.Remaining != 0 {
		t.Fatalf("usage = %+v", usage)
	}
	if counter.values["amadeus:calls:2025-06"] != 3 {
		t.Fatal("Usage() must not increment the counter")
	}

	unlimited, _ := NewQuotaLimiter(newFakeCounter(), 0).Usage(context.Background())
	if unlimited.Remaining != -1 {
		t.Fatalf("remaining = %d, want -1 when unlimited", unlimited.Remaining)
	}
}
