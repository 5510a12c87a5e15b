package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord 价格观测记录，只追加不修改
type PriceRecord struct {
	ID            int64           `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	AlertID       string          `gorm:"type:varchar(36);not null;index:idx_price_records_alert_checked,priority:1" json:"alert_id"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Currency      string          `gorm:"type:char(3);not null" json:"currency"`
	Airline       string          `gorm:"type:varchar(8);not null" json:"airline"`
	FlightNumber  string          `gorm:"type:varchar(16);not null" json:"flight_number"`
	DepartureTime time.Time       `gorm:"type:timestamptz;not null" json:"departure_time"`
	ArrivalTime   time.Time       `gorm:"type:timestamptz;not null" json:"arrival_time"`
	Duration      int             `gorm:"not null" json:"duration"` // 分钟
	Stops         int             `gorm:"type:smallint;not null" json:"stops"`
	BookingLink   *string         `gorm:"type:text" json:"booking_link,omitempty"`
	CheckedAt     time.Time       `gorm:"type:timestamptz;not null;default:now();index:idx_price_records_alert_checked,priority:2" json:"checked_at"`
}

// TableName 指定表名
func (PriceRecord) TableName() string {
	return "price_records"
}

// DailyLowestPrice 按天聚合的最低价
type DailyLowestPrice struct {
	Date        string          `json:"date"`
	LowestPrice decimal.Decimal `json:"lowest_price"`
}

// PriceSort 价格历史排序方式
type PriceSort string

const (
	PriceSortRecent   PriceSort = "recent"
	PriceSortCheapest PriceSort = "cheapest"
)

// PriceHistoryQuery 价格历史查询参数
type PriceHistoryQuery struct {
	Sort   PriceSort `query:"sort"`
	Limit  int       `query:"limit"`
	Offset int       `query:"offset"`
}

// PriceSummary 单个提醒的价格摘要
type PriceSummary struct {
	LowestPrice *decimal.Decimal `json:"lowest_price"`
	RecordCount int64            `json:"price_record_count"`
}
