package storage

import (
	"context"

	"FareWatch/config"
	"FareWatch/storage/database"
	"FareWatch/storage/mq"
	"FareWatch/storage/redis"
)

// Init 统一初始化存储层，内存队列模式下不连接 RabbitMQ
func Init() error {
	if err := database.Init(); err != nil {
		return err
	}

	if err := redis.Init(); err != nil {
		return err
	}

	if config.Cfg.UsesMemoryQueue() {
		return nil
	}

	return mq.Init()
}

// Ping 依赖检查结果，key 为组件名，value 为空表示正常
func Ping(ctx context.Context) map[string]string {
	checks := map[string]func(context.Context) error{
		"database": database.Ping,
		"redis":    redis.Ping,
	}
	if !config.Cfg.UsesMemoryQueue() {
		checks["rabbitmq"] = mq.Ping
	}

	out := make(map[string]string, len(checks))
	for name, check := range checks {
		if err := check(ctx); err != nil {
			out[name] = err.Error()
		} else {
			out[name] = ""
		}
	}
	return out
}
