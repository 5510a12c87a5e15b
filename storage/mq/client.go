package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"FareWatch/config"
	"FareWatch/pkg/logger"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

func Init() error {
	connOnce.Do(func() {
		conn, connErr = amqp.Dial(config.Cfg.GetRabbitMQURL())
		if connErr != nil {
			logger.Logger.Error("Failed to connect to RabbitMQ",
				zap.String("addr", config.Cfg.RabbitMQAddr),
				zap.Error(connErr),
			)
			return
		}
		logger.Logger.Info("RabbitMQ connected", zap.String("addr", config.Cfg.RabbitMQAddr))
	})
	return connErr
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	pubMutex.Lock()
	if publisherCh != nil && !publisherCh.IsClosed() {
		_ = publisherCh.Close()
	}
	publisherCh = nil
	pubMutex.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// DeclareTopology 声明持久化队列和延迟交换机（需要 rabbitmq_delayed_message_exchange 插件）
// 每个队列以队列名为 routing key 绑定到延迟交换机上，重试消息经交换机延迟投递回原队列
func DeclareTopology(delayedExchange string, queues ...string) error {
	if conn == nil {
		return fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(
		delayedExchange,
		"x-delayed-message",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "direct"},
	); err != nil {
		return fmt.Errorf("failed to declare delayed exchange %s: %w", delayedExchange, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", q, err)
		}
		if err := ch.QueueBind(q, q, delayedExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %s: %w", q, err)
		}
	}

	logger.Logger.Info("RabbitMQ topology declared",
		zap.String("delayed_exchange", delayedExchange),
		zap.Strings("queues", queues),
	)
	return nil
}

// Ping 连接已关闭或未初始化时返回错误
func Ping(ctx context.Context) error {
	if conn == nil || conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is not open")
	}
	return nil
}
