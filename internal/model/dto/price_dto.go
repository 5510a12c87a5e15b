package dto

import "FareWatch/internal/model"

// ========== Price 相关 DTO ==========

// PriceHistoryResponse 价格历史分页结果
type PriceHistoryResponse struct {
	Items  []model.PriceRecord `json:"items"`
	Total  int64               `json:"total"`
	Sort   model.PriceSort     `json:"sort"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// DailyLowestResponse 每日最低价
type DailyLowestResponse struct {
	AlertID string                   `json:"alert_id"`
	Days    []model.DailyLowestPrice `json:"days"`
}

// AirportSearchResponse 机场搜索结果
type AirportSearchResponse struct {
	Keyword  string          `json:"keyword"`
	Airports []model.Airport `json:"airports"`
}
