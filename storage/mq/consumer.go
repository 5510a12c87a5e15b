package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"FareWatch/pkg/logger"
	pkgmq "FareWatch/pkg/mq"
)

// MessageHandler 返回 error 时消息会被 Nack 并重新入队
type MessageHandler func(ctx context.Context, body []byte) error

type ConsumeOptions struct {
	Queue         string
	ConsumerTag   string
	PrefetchCount int
	// Concurrency 同时处理消息的协程数，<=0 时为 1
	Concurrency int
	Handler     MessageHandler
}

// Consume 阻塞消费直到 ctx 取消或 channel 关闭
func Consume(ctx context.Context, opts ConsumeOptions) error {
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := opts.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		opts.Queue,
		opts.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Logger.Info("Started consuming messages",
		zap.String("queue", opts.Queue),
		zap.String("consumer_tag", opts.ConsumerTag),
		zap.Int("prefetch_count", prefetch),
		zap.Int("concurrency", concurrency),
	)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					start := time.Now()
					msgCtx, span := pkgmq.StartConsumeSpan(ctx, opts.Queue, msg)
					err := opts.Handler(msgCtx, msg.Body)
					pkgmq.EndSpan(msgCtx, span, "process", opts.Queue, start, err)
					if err != nil {
						logger.Logger.Error("Failed to process message",
							zap.String("queue", opts.Queue),
							zap.String("consumer_tag", opts.ConsumerTag),
							zap.Error(err),
						)
						_ = msg.Nack(false, true)
						continue
					}
					_ = msg.Ack(false)
				}
			}
		}()
	}

	wg.Wait()
	return ctx.Err()
}
