package service

import (
	"context"
	"sync"

	"FareWatch/internal/model"
	"FareWatch/internal/model/dto"
	"FareWatch/internal/repository"
	pkgerrors "FareWatch/pkg/errors"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// AlertOwnerLookup 校验提醒归属
type AlertOwnerLookup interface {
	FindUserAlert(ctx context.Context, userID, id string) (*model.FlightAlert, error)
}

// PriceReader 价格记录的只读查询
type PriceReader interface {
	History(ctx context.Context, alertID string, q model.PriceHistoryQuery) ([]model.PriceRecord, int64, error)
	DailyLowest(ctx context.Context, alertID string) ([]model.DailyLowestPrice, error)
	Summary(ctx context.Context, alertID string) (model.PriceSummary, error)
}

// PriceService 价格报表
type PriceService struct {
	alerts AlertOwnerLookup
	prices PriceReader
}

var (
	priceService *PriceService
	priceOnce    sync.Once
)

func Price() *PriceService {
	priceOnce.Do(func() {
		priceService = NewPriceService(repository.Alert(), repository.PriceRecord())
	})
	return priceService
}

func NewPriceService(alerts AlertOwnerLookup, prices PriceReader) *PriceService {
	return &PriceService{alerts: alerts, prices: prices}
}

func (s *PriceService) checkOwner(ctx context.Context, userID, alertID string) error {
	alert, err := s.alerts.FindUserAlert(ctx, userID, alertID)
	if err != nil {
		return err
	}
	if alert == nil {
		return pkgerrors.AlertNotFound
	}
	return nil
}

// NormalizeHistoryQuery 填充默认值，limit 上限 200
func NormalizeHistoryQuery(q model.PriceHistoryQuery) (model.PriceHistoryQuery, error) {
	switch q.Sort {
	case "":
		q.Sort = model.PriceSortRecent
	case model.PriceSortRecent, model.PriceSortCheapest:
	default:
		return q, invalid("sort must be recent or cheapest")
	}
	if q.Limit <= 0 {
		q.Limit = defaultHistoryLimit
	}
	if q.Limit > maxHistoryLimit {
		q.Limit = maxHistoryLimit
	}
	if q.Offset < 0 {
		return q, invalid("offset must not be negative")
	}
	return q, nil
}

func (s *PriceService) History(ctx context.Context, userID, alertID string, q model.PriceHistoryQuery) (*dto.PriceHistoryResponse, error) {
	q, err := NormalizeHistoryQuery(q)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwner(ctx, userID, alertID); err != nil {
		return nil, err
	}

	records, total, err := s.prices.History(ctx, alertID, q)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []model.PriceRecord{}
	}
	return &dto.PriceHistoryResponse{
		Items:  records,
		Total:  total,
		Sort:   q.Sort,
		Limit:  q.Limit,
		Offset: q.Offset,
	}, nil
}

// DailyLowest 按自然日的最低价
func (s *PriceService) DailyLowest(ctx context.Context, userID, alertID string) (*dto.DailyLowestResponse, error) {
	if err := s.checkOwner(ctx, userID, alertID); err != nil {
		return nil, err
	}

	days, err := s.prices.DailyLowest(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if days == nil {
		days = []model.DailyLowestPrice{}
	}
	return &dto.DailyLowestResponse{AlertID: alertID, Days: days}, nil
}
