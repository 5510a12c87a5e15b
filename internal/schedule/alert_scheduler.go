package schedule

// 提醒调度器：扫描到期的提醒，为每个提醒投递一个价格检查任务
// 只做筛选和投递，不计算报价

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"FareWatch/internal/model"
	"FareWatch/internal/queue"
	"FareWatch/internal/repository"
	"FareWatch/pkg/logger"
	"FareWatch/pkg/metrics"
)

// DueAlertFinder 查询到期的 ACTIVE 提醒
type DueAlertFinder interface {
	FindAlertsDueForCheck(ctx context.Context, now time.Time) ([]string, error)
}

// AlertScheduler 提醒调度器
type AlertScheduler struct {
	alerts DueAlertFinder
	queue  queue.Queue
	logger *zap.Logger
	now    func() time.Time

	scanRunning  bool
	scanMu       sync.Mutex
	lastScanTime time.Time
}

// NewDefaultAlertScheduler 使用数据库中的提醒
func NewDefaultAlertScheduler(q queue.Queue) *AlertScheduler {
	return NewAlertScheduler(repository.Alert(), q)
}

func NewAlertScheduler(alerts DueAlertFinder, q queue.Queue) *AlertScheduler {
	return &AlertScheduler{
		alerts: alerts,
		queue:  q,
		logger: logger.Named("alert_scheduler"),
		now:    time.Now,
	}
}

// LastScanTime 最近一次扫描开始的时间
func (s *AlertScheduler) LastScanTime() time.Time {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	return s.lastScanTime
}

// ScanDueAlerts 返回到期数量和实际投递数量，已有在途任务的提醒被去重，不计入投递数
func (s *AlertScheduler) ScanDueAlerts(ctx context.Context) (model.ScanResult, error) {
	s.scanMu.Lock()
	if s.scanRunning {
		s.scanMu.Unlock()
		s.logger.Info("Alert scan already running, skipping")
		return model.ScanResult{}, nil
	}
	s.scanRunning = true
	startTime := s.now().UTC()
	s.lastScanTime = startTime
	s.scanMu.Unlock()

	defer func() {
		s.scanMu.Lock()
		s.scanRunning = false
		s.scanMu.Unlock()
	}()

	ids, err := s.alerts.FindAlertsDueForCheck(ctx, startTime)
	if err != nil {
		s.logger.Error("Failed to query due alerts", zap.Error(err))
		return model.ScanResult{}, fmt.Errorf("failed to query due alerts: %w", err)
	}
	metrics.SetDueAlerts(len(ids))

	result := model.ScanResult{Due: len(ids)}
	if len(ids) == 0 {
		s.logger.Debug("No alerts due for check")
		return result, nil
	}

	var errCount int
	for _, id := range ids {
		enqueued, err := queue.EnqueuePriceCheck(ctx, s.queue, id)
		if err != nil {
			errCount++
			continue
		}
		if enqueued {
			result.Enqueued++
		}
	}

	s.logger.Info("Alert scan completed",
		zap.Int("due", result.Due),
		zap.Int("enqueued", result.Enqueued),
		zap.Int("error_count", errCount),
		zap.Duration("duration", time.Since(startTime)),
	)

	if errCount == len(ids) {
		return result, fmt.Errorf("failed to enqueue any of %d due alerts", len(ids))
	}
	return result, nil
}
