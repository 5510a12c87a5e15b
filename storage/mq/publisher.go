package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"FareWatch/pkg/logger"
	pkgmq "FareWatch/pkg/mq"
)

// 所有发布共用一个 channel，关闭后在下一次发布时重建
var (
	publisherCh *amqp.Channel
	pubMutex    sync.RWMutex
)

func getPublisherChannel() (*amqp.Channel, error) {
	pubMutex.RLock()
	if publisherCh != nil && !publisherCh.IsClosed() {
		ch := publisherCh
		pubMutex.RUnlock()
		return ch, nil
	}
	pubMutex.RUnlock()

	pubMutex.Lock()
	defer pubMutex.Unlock()

	if publisherCh != nil && !publisherCh.IsClosed() {
		return publisherCh, nil
	}

	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open publish channel: %w", err)
	}
	publisherCh = ch

	closeChan := ch.NotifyClose(make(chan *amqp.Error, 1))
	go func() {
		<-closeChan

		pubMutex.Lock()
		if publisherCh == ch {
			publisherCh = nil
		}
		pubMutex.Unlock()

		logger.Logger.Warn("Publisher channel closed, will recreate on next publish",
			zap.String("component", "rabbitmq"),
		)
	}()

	logger.Logger.Info("Publisher channel created",
		zap.String("component", "rabbitmq"),
	)

	return ch, nil
}

// PublishDelayedMessage 经延迟交换机投递，delay 以毫秒写入 x-delay
func PublishDelayedMessage(ctx context.Context, exchange, routingKey string, delay time.Duration, body interface{}) error {
	if delay < 0 {
		delay = 0
	}
	return publish(ctx, exchange, routingKey, body, amqp.Table{
		"x-delay": delay.Milliseconds(),
	})
}

// PublishMessage 发送普通消息，exchange 为空时直接投递到 routingKey 同名队列
func PublishMessage(ctx context.Context, exchange, routingKey string, body interface{}) error {
	return publish(ctx, exchange, routingKey, body, nil)
}

func publish(ctx context.Context, exchange, routingKey string, body interface{}, headers amqp.Table) (err error) {
	start := time.Now()
	ctx, span, headers := pkgmq.StartPublishSpan(ctx, exchange, routingKey, headers)
	defer func() {
		pkgmq.EndSpan(ctx, span, "publish", routingKey, start, err)
	}()

	ch, err := getPublisherChannel()
	if err != nil {
		return err
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = ch.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         bodyBytes,
			Headers:      headers,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message to %s/%s: %w", exchange, routingKey, err)
	}
	return nil
}
