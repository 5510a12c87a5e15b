package queue

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"FareWatch/config"
	"FareWatch/internal/model"
	"FareWatch/pkg/errors"
	"FareWatch/pkg/logger"
)

// PriceChecker 执行单个提醒的价格检查
type PriceChecker interface {
	CheckPrice(ctx context.Context, alertID string) (model.PriceCheckResult, error)
}

// AlertScanner 扫描到期提醒并投递价格检查
type AlertScanner interface {
	ScanDueAlerts(ctx context.Context) (model.ScanResult, error)
}

// PriceCheckHandler 价格检查任务处理函数
func PriceCheckHandler(checker PriceChecker) Handler {
	return func(ctx context.Context, task *Task) error {
		var msg model.PriceCheckMessage
		if err := task.Decode(&msg); err != nil {
			return &errors.SkipMessageError{Reason: err.Error()}
		}
		if msg.AlertID == "" {
			return &errors.SkipMessageError{Reason: fmt.Sprintf("task %s has no alert id", task.ID)}
		}

		result, err := checker.CheckPrice(ctx, msg.AlertID)
		if err != nil {
			return err
		}

		// 跳过的检查已经处理完毕，交给调度器按 skipped 记录且不重试
		if result.Skipped {
			reason := fmt.Sprintf("alert %s: %s", result.AlertID, result.Reason)
			if result.Error != "" {
				reason += ": " + result.Error
			}
			return &errors.SkipMessageError{Reason: reason}
		}

		logger.Logger.Info("Price check completed",
			zap.String("task_id", task.ID),
			zap.String("alert_id", result.AlertID),
			zap.Int("offers_found", result.OffersFound),
			zap.Int("offers_stored", result.OffersStored),
		)
		return nil
	}
}

// AlertScanHandler 周期扫描任务处理函数
func AlertScanHandler(scanner AlertScanner) Handler {
	return func(ctx context.Context, task *Task) error {
		result, err := scanner.ScanDueAlerts(ctx)
		if err != nil {
			return err
		}
		logger.Logger.Info("Alert scan completed",
			zap.String("task_id", task.ID),
			zap.Int("due", result.Due),
			zap.Int("enqueued", result.Enqueued),
		)
		return nil
	}
}

// PriceCheckConsumeOptions 价格检查的并发和重试策略
func PriceCheckConsumeOptions() ConsumeOptions {
	cfg := config.Cfg
	return ConsumeOptions{
		Concurrency: cfg.PriceCheckConcurrency,
		Retry: RetryPolicy{
			Attempts:  cfg.PriceCheckAttempts,
			BaseDelay: cfg.PriceCheckBackoff,
			MaxDelay:  cfg.PriceCheckMaxBackoff,
		},
	}
}

// StartAllConsumers 启动所有消费者，阻塞直到 ctx 取消
func StartAllConsumers(ctx context.Context, q Queue, checker PriceChecker, scanner AlertScanner) {
	var wg sync.WaitGroup

	consumers := []struct {
		name    string
		queue   string
		handler Handler
		opts    ConsumeOptions
	}{
		// 扫描失败不重试，下一轮触发会重新扫描
		{"alert_scheduler", QueueAlertScheduler, AlertScanHandler(scanner), ConsumeOptions{Concurrency: 1, Retry: RetryPolicy{Attempts: 1}}},
		{"price_check", QueuePriceCheck, PriceCheckHandler(checker), PriceCheckConsumeOptions()},
	}

	for _, c := range consumers {
		wg.Add(1)
		go func(name, queue string, handler Handler, opts ConsumeOptions) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer",
				zap.String("consumer_name", name),
				zap.Int("concurrency", opts.Concurrency),
			)

			if err := q.Consume(ctx, queue, handler, opts); err != nil && ctx.Err() == nil {
				logger.Logger.Error("Consumer exited with error",
					zap.String("consumer_name", name),
					zap.Error(err),
				)
			}
		}(c.name, c.queue, c.handler, c.opts)
	}

	wg.Wait()

	logger.Logger.Info("All consumers stopped")
}
