package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TripType 行程类型
type TripType string

const (
	TripTypeOneWay    TripType = "ONE_WAY"
	TripTypeRoundTrip TripType = "ROUND_TRIP"
)

// DayShift 出发时段
type DayShift string

const (
	DayShiftMorning   DayShift = "MORNING"
	DayShiftAfternoon DayShift = "AFTERNOON"
	DayShiftNight     DayShift = "NIGHT"
)

// AlertStatus 提醒状态，DELETED 为终态
type AlertStatus string

const (
	AlertStatusActive  AlertStatus = "ACTIVE"
	AlertStatusPaused  AlertStatus = "PAUSED"
	AlertStatusDeleted AlertStatus = "DELETED"
)

// CanTransitionTo ACTIVE<->PAUSED，ACTIVE/PAUSED -> DELETED
func (s AlertStatus) CanTransitionTo(next AlertStatus) bool {
	switch s {
	case AlertStatusActive:
		return next == AlertStatusPaused || next == AlertStatusDeleted
	case AlertStatusPaused:
		return next == AlertStatusActive || next == AlertStatusDeleted
	default:
		return false
	}
}

// CheckFrequency 检查频率
type CheckFrequency string

const (
	FrequencyHours1  CheckFrequency = "HOURS_1"
	FrequencyHours3  CheckFrequency = "HOURS_3"
	FrequencyHours6  CheckFrequency = "HOURS_6"
	FrequencyHours12 CheckFrequency = "HOURS_12"
	FrequencyHours24 CheckFrequency = "HOURS_24"
)

// DefaultCheckInterval 未知频率的兜底值
const DefaultCheckInterval = 6 * time.Hour

var frequencyIntervals = map[CheckFrequency]time.Duration{
	FrequencyHours1:  1 * time.Hour,
	FrequencyHours3:  3 * time.Hour,
	FrequencyHours6:  6 * time.Hour,
	FrequencyHours12: 12 * time.Hour,
	FrequencyHours24: 24 * time.Hour,
}

// Interval 返回检查间隔，未识别的值回落到 6 小时
func (f CheckFrequency) Interval() time.Duration {
	if d, ok := frequencyIntervals[f]; ok {
		return d
	}
	return DefaultCheckInterval
}

// Valid 是否为已知频率
func (f CheckFrequency) Valid() bool {
	_, ok := frequencyIntervals[f]
	return ok
}

// FlightAlert 用户的机票价格提醒
type FlightAlert struct {
	Timestamps
	ID     string `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID string `gorm:"type:varchar(64);not null;index:idx_flight_alerts_user" json:"user_id"`

	DepartureCity          string  `gorm:"type:varchar(128);not null" json:"departure_city"`
	DepartureAirportCode   *string `gorm:"type:char(3)" json:"departure_airport_code,omitempty"`
	DestinationCity        string  `gorm:"type:varchar(128);not null" json:"destination_city"`
	DestinationAirportCode *string `gorm:"type:char(3)" json:"destination_airport_code,omitempty"`

	TripType          TripType                      `gorm:"type:varchar(16);not null" json:"trip_type"`
	DepartureDate     time.Time                     `gorm:"type:date;not null" json:"departure_date"`
	DepartureDateEnd  *time.Time                    `gorm:"type:date" json:"departure_date_end,omitempty"`
	DepartureDayShift datatypes.JSONSlice[DayShift] `gorm:"type:jsonb;not null;default:'[]'" json:"departure_day_shift"`
	ReturnDate        *time.Time                    `gorm:"type:date" json:"return_date,omitempty"`
	ReturnDateEnd     *time.Time                    `gorm:"type:date" json:"return_date_end,omitempty"`
	ReturnDayShift    datatypes.JSONSlice[DayShift] `gorm:"type:jsonb;not null;default:'[]'" json:"return_day_shift"`

	PriceThreshold    decimal.Decimal             `gorm:"type:numeric(10,2);not null" json:"price_threshold"`
	Airlines          datatypes.JSONSlice[string] `gorm:"type:jsonb;not null;default:'[]'" json:"airlines"`
	MaxFlightDuration *int                        `json:"max_flight_duration,omitempty"` // 分钟，仅限去程

	CheckFrequency CheckFrequency `gorm:"type:varchar(16);not null;default:'HOURS_6'" json:"check_frequency"`
	Status         AlertStatus    `gorm:"type:varchar(16);not null;default:'ACTIVE';index:idx_flight_alerts_due,priority:1" json:"status"`
	LastCheckedAt  *time.Time     `gorm:"type:timestamptz" json:"last_checked_at,omitempty"`
	NextCheckAt    *time.Time     `gorm:"type:timestamptz;index:idx_flight_alerts_due,priority:2" json:"next_check_at,omitempty"`
}

// TableName 指定表名
func (FlightAlert) TableName() string {
	return "flight_alerts"
}

// IsActive 是否处于调度中
func (a *FlightAlert) IsActive() bool {
	return a != nil && a.Status == AlertStatusActive
}

// SearchDates 搜索用的日期字符串（YYYY-MM-DD），单程时 returnDate 为空
func (a *FlightAlert) SearchDates() (departure, ret string) {
	departure = a.DepartureDate.UTC().Format(DateLayout)
	if a.TripType == TripTypeRoundTrip && a.ReturnDate != nil {
		ret = a.ReturnDate.UTC().Format(DateLayout)
	}
	return departure, ret
}

// Route 返回出发/到达机场代码，缺失时 ok=false
func (a *FlightAlert) Route() (origin, destination string, ok bool) {
	if a.DepartureAirportCode == nil || a.DestinationAirportCode == nil {
		return "", "", false
	}
	origin, destination = *a.DepartureAirportCode, *a.DestinationAirportCode
	return origin, destination, origin != "" && destination != ""
}

// DateLayout 日期格式
const DateLayout = "2006-01-02"

// ScheduleUpdate 调度字段的部分更新
type ScheduleUpdate struct {
	LastCheckedAt *time.Time
	NextCheckAt   *time.Time
}
