package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"FareWatch/internal/model"
	"FareWatch/storage/database"
)

const insertBatchSize = 100

// PriceRecordRepository price_records 表，只追加
type PriceRecordRepository struct {
	db *gorm.DB
}

var (
	priceRecordRepo     *PriceRecordRepository
	priceRecordRepoOnce sync.Once
)

func PriceRecord() *PriceRecordRepository {
	priceRecordRepoOnce.Do(func() {
		priceRecordRepo = NewPriceRecordRepository(database.DB())
	})
	return priceRecordRepo
}

func NewPriceRecordRepository(db *gorm.DB) *PriceRecordRepository {
	return &PriceRecordRepository{db: db}
}

// InsertPriceRecords 批量写入，记录的 AlertID 统一为 alertID
func (r *PriceRecordRepository) InsertPriceRecords(ctx context.Context, alertID string, records []model.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		records[i].AlertID = alertID
	}
	if err := r.db.WithContext(ctx).CreateInBatches(records, insertBatchSize).Error; err != nil {
		return fmt.Errorf("insert price records: %w", err)
	}
	return nil
}

// History 分页查询，返回当前页和总数
func (r *PriceRecordRepository) History(ctx context.Context, alertID string, q model.PriceHistoryQuery) ([]model.PriceRecord, int64, error) {
	base := r.db.WithContext(ctx).Model(&model.PriceRecord{}).Where("alert_id = ?", alertID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count price records: %w", err)
	}

	order := "checked_at DESC, id DESC"
	if q.Sort == model.PriceSortCheapest {
		order = "price ASC, checked_at DESC"
	}

	var records []model.PriceRecord
	err := r.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order(order).
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list price records: %w", err)
	}
	return records, total, nil
}

type dailyLowRow struct {
	Day         string
	LowestPrice decimal.Decimal
}

// DailyLowest 按 checked_at 的自然日（UTC）取最低价，按日期升序
func (r *PriceRecordRepository) DailyLowest(ctx context.Context, alertID string) ([]model.DailyLowestPrice, error) {
	var rows []dailyLowRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT to_char(checked_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
		       MIN(price) AS lowest_price
		FROM price_records
		WHERE alert_id = ?
		GROUP BY day
		ORDER BY day ASC`, alertID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("aggregate daily lowest prices: %w", err)
	}

	out := make([]model.DailyLowestPrice, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.DailyLowestPrice{Date: row.Day, LowestPrice: row.LowestPrice})
	}
	return out, nil
}

type summaryRow struct {
	LowestPrice decimal.NullDecimal
	RecordCount int64
}

// Summary 最低价和记录数，没有记录时最低价为 nil
func (r *PriceRecordRepository) Summary(ctx context.Context, alertID string) (model.PriceSummary, error) {
	var row summaryRow
	err := r.db.WithContext(ctx).
		Model(&model.PriceRecord{}).
		Select("MIN(price) AS lowest_price, COUNT(*) AS record_count").
		Where("alert_id = ?", alertID).
		Scan(&row).Error
	if err != nil {
		return model.PriceSummary{}, fmt.Errorf("summarize price records: %w", err)
	}

	summary := model.PriceSummary{RecordCount: row.RecordCount}
	if row.LowestPrice.Valid {
		lowest := row.LowestPrice.Decimal
		summary.LowestPrice = &lowest
	}
	return summary, nil
}
