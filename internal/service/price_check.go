package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"FareWatch/internal/model"
	"FareWatch/internal/repository"
	"FareWatch/pkg/amadeus"
	"FareWatch/pkg/logger"
	"FareWatch/pkg/metrics"
	"FareWatch/pkg/snowflake"
)

const (
	reasonNotActive     = "alert not active"
	reasonRouteMissing  = "alert route is missing airport codes"
	reasonProviderError = "provider rejected the search"
)

// AlertStore 价格检查需要的提醒读写
type AlertStore interface {
	// FindAlertByID 不存在时返回 nil, nil
	FindAlertByID(ctx context.Context, id string) (*model.FlightAlert, error)
	// UpdateAlertSchedule 只更新 ACTIVE 状态的提醒，返回是否有行被更新
	UpdateAlertSchedule(ctx context.Context, id string, update model.ScheduleUpdate) (bool, error)
}

// PriceRecordStore 价格记录只追加
type PriceRecordStore interface {
	InsertPriceRecords(ctx context.Context, alertID string, records []model.PriceRecord) error
}

// FlightSearcher 航班搜索
type FlightSearcher interface {
	SearchFlights(ctx context.Context, params amadeus.SearchParams) ([]model.FlightOffer, error)
}

// QuotaAdmitter 调用额度准入
type QuotaAdmitter interface {
	Admit(ctx context.Context) (QuotaDecision, error)
}

// PriceCheckService 单个提醒的价格检查
type PriceCheckService struct {
	alerts   AlertStore
	records  PriceRecordStore
	searcher FlightSearcher
	quota    QuotaAdmitter
	nextID   func() (int64, error)
	now      func() time.Time
}

var (
	priceCheckService *PriceCheckService
	priceCheckOnce    sync.Once
)

// PriceCheck 使用数据库、Redis 额度和 Amadeus 客户端，需在 storage.Init 与 amadeus.Init 之后调用
func PriceCheck() *PriceCheckService {
	priceCheckOnce.Do(func() {
		priceCheckService = NewPriceCheckService(repository.Alert(), repository.PriceRecord(), amadeus.GetClient(), Quota())
	})
	return priceCheckService
}

func NewPriceCheckService(alerts AlertStore, records PriceRecordStore, searcher FlightSearcher, quota QuotaAdmitter) *PriceCheckService {
	return &PriceCheckService{
		alerts:   alerts,
		records:  records,
		searcher: searcher,
		quota:    quota,
		nextID:   snowflake.NextID,
		now:      time.Now,
	}
}

// CheckPrice 只有供应商的 5xx/网络错误会返回 error 交给队列重试，其余情况都以 Skipped 结果结束
func (s *PriceCheckService) CheckPrice(ctx context.Context, alertID string) (result model.PriceCheckResult, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		switch {
		case err != nil:
			outcome = "failed"
		case result.Skipped:
			outcome = "skipped"
		}
		metrics.RecordPriceCheck(ctx, outcome, time.Since(start).Seconds(), result.OffersStored)
	}()

	result.AlertID = alertID

	alert, err := s.alerts.FindAlertByID(ctx, alertID)
	if err != nil {
		return result, fmt.Errorf("load alert %s: %w", alertID, err)
	}
	if !alert.IsActive() {
		result.Skipped = true
		result.Reason = reasonNotActive
		return result, nil
	}

	now := s.now().UTC()
	nextCheck := now.Add(alert.CheckFrequency.Interval())

	origin, destination, ok := alert.Route()
	if !ok {
		s.reschedule(ctx, alertID, model.ScheduleUpdate{LastCheckedAt: &now, NextCheckAt: &nextCheck})
		result.Skipped = true
		result.Reason = reasonRouteMissing
		return result, nil
	}

	decision, err := s.quota.Admit(ctx)
	if err != nil {
		return result, err
	}
	if !decision.Allowed {
		s.reschedule(ctx, alertID, model.ScheduleUpdate{NextCheckAt: &nextCheck})
		result.Skipped = true
		result.Reason = fmt.Sprintf("Monthly API limit exceeded (%d/%d)", decision.Current, decision.Limit)
		return result, nil
	}

	departureDate, returnDate := alert.SearchDates()
	offers, searchErr := s.searcher.SearchFlights(ctx, amadeus.SearchParams{
		Origin:        origin,
		Destination:   destination,
		DepartureDate: departureDate,
		ReturnDate:    returnDate,
	})
	if searchErr != nil {
		// 先推迟下次检查，避免失败的航线在队列重试之外被反复扫描
		s.reschedule(ctx, alertID, model.ScheduleUpdate{LastCheckedAt: &now, NextCheckAt: &nextCheck})

		if !amadeus.IsRetryable(searchErr) {
			logger.Logger.Warn("Flight search rejected by provider",
				zap.String("alert_id", alertID),
				zap.String("route", origin+"-"+destination),
				zap.Error(searchErr),
			)
			result.Skipped = true
			result.Reason = reasonProviderError
			result.Error = searchErr.Error()
			return result, nil
		}
		return result, fmt.Errorf("search flights for alert %s: %w", alertID, searchErr)
	}

	matched := FilterOffers(offers, alert)
	result.OffersFound = len(offers)

	if len(matched) > 0 {
		records := make([]model.PriceRecord, 0, len(matched))
		for _, offer := range matched {
			id, err := s.nextID()
			if err != nil {
				return result, fmt.Errorf("generate price record id: %w", err)
			}
			records = append(records, offer.ToPriceRecord(id, alertID, now))
		}
		if err := s.records.InsertPriceRecords(ctx, alertID, records); err != nil {
			return result, fmt.Errorf("insert price records for alert %s: %w", alertID, err)
		}
	}
	result.OffersStored = len(matched)

	s.reschedule(ctx, alertID, model.ScheduleUpdate{LastCheckedAt: &now, NextCheckAt: &nextCheck})
	return result, nil
}

// reschedule 更新失败只记录日志：nextCheckAt 留在过去，下一轮扫描会再次投递
func (s *PriceCheckService) reschedule(ctx context.Context, alertID string, update model.ScheduleUpdate) {
	updated, err := s.alerts.UpdateAlertSchedule(ctx, alertID, update)
	if err != nil {
		logger.Logger.Error("Failed to reschedule alert",
			zap.String("alert_id", alertID),
			zap.Error(err),
		)
		return
	}
	if !updated {
		logger.Logger.Info("Alert left ACTIVE during price check, schedule not updated",
			zap.String("alert_id", alertID),
		)
	}
}
