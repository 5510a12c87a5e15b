package queue

import (
	"context"
	"sync"
	"time"

	"FareWatch/internal/cache"
)

// DedupStore 去重占位，Acquire 成功后需要在任务结束时 Release
type DedupStore interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

func dedupKey(queue, key string) string {
	return "dedup:" + queue + ":" + key
}

// RedisDedupStore 跨进程共享，基于 SETNX
type RedisDedupStore struct{}

func (RedisDedupStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return cache.TryLock(ctx, key, ttl)
}

func (RedisDedupStore) Release(ctx context.Context, key string) error {
	return cache.Unlock(ctx, key)
}

// MemoryDedupStore 单进程使用
type MemoryDedupStore struct {
	mu   sync.Mutex
	keys map[string]time.Time
	now  func() time.Time
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{
		keys: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (s *MemoryDedupStore) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiresAt, ok := s.keys[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.keys[key] = now.Add(ttl)
	return true, nil
}

func (s *MemoryDedupStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}
