package dto

import (
	"github.com/shopspring/decimal"

	"FareWatch/internal/model"
)

// ========== Alert 相关 DTO ==========

// CreateAlertRequest 创建提醒请求，日期格式 YYYY-MM-DD
type CreateAlertRequest struct {
	DepartureCity          string           `json:"departure_city"`
	DepartureAirportCode   *string          `json:"departure_airport_code"`
	DestinationCity        string           `json:"destination_city"`
	DestinationAirportCode *string          `json:"destination_airport_code"`
	TripType               model.TripType   `json:"trip_type"`
	DepartureDate          string           `json:"departure_date"`
	DepartureDateEnd       *string          `json:"departure_date_end"`
	DepartureDayShift      []model.DayShift `json:"departure_day_shift"`
	ReturnDate             *string          `json:"return_date"`
	ReturnDateEnd          *string          `json:"return_date_end"`
	ReturnDayShift         []model.DayShift `json:"return_day_shift"`

	PriceThreshold    decimal.Decimal      `json:"price_threshold"`
	Airlines          []string             `json:"airlines"`
	MaxFlightDuration *int                 `json:"max_flight_duration"`
	CheckFrequency    model.CheckFrequency `json:"check_frequency"`
}

// UpdateAlertRequest 修改提醒，nil 字段不修改
type UpdateAlertRequest struct {
	PriceThreshold    *decimal.Decimal      `json:"price_threshold"`
	Airlines          *[]string             `json:"airlines"`
	MaxFlightDuration *int                  `json:"max_flight_duration"`
	DepartureDayShift *[]model.DayShift     `json:"departure_day_shift"`
	ReturnDayShift    *[]model.DayShift     `json:"return_day_shift"`
	CheckFrequency    *model.CheckFrequency `json:"check_frequency"`
}

// AlertListQuery 提醒列表查询参数
type AlertListQuery struct {
	Status string `query:"status"`
}

// AlertDetail 提醒详情，附带价格摘要
type AlertDetail struct {
	*model.FlightAlert
	model.PriceSummary
}
