package queue

import (
	"FareWatch/config"
)

// New 按配置创建队列；rabbitmq 模式下需要先完成 storage.Init
func New() (Queue, error) {
	cfg := config.Cfg
	if cfg.UsesMemoryQueue() {
		return NewMemoryQueue(NewMemoryDedupStore(), cfg.QueueDedupTTL), nil
	}

	q := NewRabbitQueue(cfg.QueueDelayedExchange, RedisDedupStore{}, cfg.QueueDedupTTL)
	if err := q.DeclareQueues(); err != nil {
		return nil, err
	}
	return q, nil
}
