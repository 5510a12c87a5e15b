package redis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"FareWatch/config"
	pkgredis "FareWatch/pkg/redis"

	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	once   sync.Once
	err    error
)

func Init() error {
	once.Do(func() {
		cfg := config.Cfg

		client = redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			MinIdleConns: 5,
			MaxRetries:   3,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err = client.Ping(ctx).Err(); err != nil {
			return
		}

		if cfg.OTelEnabled {
			client.AddHook(pkgredis.NewTracingHook(cfg.ServiceName, cfg.RedisDB))
		}
	})

	return err
}

func Client() *redis.Client {
	if client == nil {
		panic("Redis client not init")
	}
	return client
}

// Ready 是否已初始化
func Ready() bool {
	return client != nil && err == nil
}

// Ping 检查连接是否可用，未初始化时返回错误
func Ping(ctx context.Context) error {
	if !Ready() {
		return errors.New("redis not initialized")
	}
	return client.Ping(ctx).Err()
}

func Close(ctx context.Context) error {
	if client == nil {
		return nil
	}

	return client.Close()
}

// Key 拼接带全局前缀的 key，空段会被跳过
func Key(parts ...string) string {
	prefix := config.Cfg.RedisPrefix
	if prefix == "" {
		prefix = "fw"
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	for _, part := range parts {
		if part != "" {
			sb.WriteString(":")
			sb.WriteString(part)
		}
	}

	return sb.String()
}
