package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlightOffer 供应商报价归一化后的结构，不直接落库
type FlightOffer struct {
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	Airline          string          `json:"airline"`
	AirlineName      string          `json:"airline_name,omitempty"`
	FlightNumber     string          `json:"flight_number"`
	DepartureTime    time.Time       `json:"departure_time"`
	ArrivalTime      time.Time       `json:"arrival_time"`
	DepartureAirport string          `json:"departure_airport"`
	ArrivalAirport   string          `json:"arrival_airport"`
	Duration         int             `json:"duration"`
	Stops            int             `json:"stops"`

	// 回程字段，单程时为 nil
	ReturnDepartureTime *time.Time `json:"return_departure_time"`
	ReturnArrivalTime   *time.Time `json:"return_arrival_time"`
	ReturnDuration      *int       `json:"return_duration"`
	ReturnStops         *int       `json:"return_stops"`
}

// HasReturn 是否包含回程
func (o FlightOffer) HasReturn() bool {
	return o.ReturnDepartureTime != nil
}

// ToPriceRecord 转成价格记录
func (o FlightOffer) ToPriceRecord(id int64, alertID string, checkedAt time.Time) PriceRecord {
	return PriceRecord{
		ID:            id,
		AlertID:       alertID,
		Price:         o.Price,
		Currency:      o.Currency,
		Airline:       o.Airline,
		FlightNumber:  o.FlightNumber,
		DepartureTime: o.DepartureTime,
		ArrivalTime:   o.ArrivalTime,
		Duration:      o.Duration,
		Stops:         o.Stops,
		CheckedAt:     checkedAt,
	}
}

// Airport 机场/城市搜索结果
type Airport struct {
	Name        string `json:"name"`
	IATACode    string `json:"iata_code"`
	CityName    string `json:"city_name"`
	CountryCode string `json:"country_code"`
}
