package queue

import (
	"context"
	"time"

	"FareWatch/internal/model"
	"FareWatch/pkg/logger"

	"go.uber.org/zap"
)

// EnqueuePriceCheck 投递单个提醒的价格检查，以提醒 ID 去重
func EnqueuePriceCheck(ctx context.Context, q Queue, alertID string) (bool, error) {
	ok, err := q.Enqueue(ctx, QueuePriceCheck, model.PriceCheckMessage{AlertID: alertID}, EnqueueOptions{
		DedupKey: alertID,
	})
	if err != nil {
		logger.Logger.Error("Failed to enqueue price check",
			zap.String("alert_id", alertID),
			zap.Error(err),
		)
		return false, err
	}
	return ok, nil
}

// StartAlertScanTrigger 周期性投递到期扫描任务
func StartAlertScanTrigger(ctx context.Context, q Queue, every time.Duration) *Recurring {
	return RegisterRecurring(ctx, q, QueueAlertScheduler, every, func() interface{} {
		return model.AlertScanMessage{TriggeredAt: time.Now().UTC()}
	})
}
