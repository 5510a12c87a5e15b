package model

import "time"

// PriceCheckMessage 单个提醒的价格检查任务
type PriceCheckMessage struct {
	AlertID string `json:"alert_id"`
}

// AlertScanMessage 周期扫描任务，由 recurring trigger 投递
type AlertScanMessage struct {
	TriggeredAt time.Time `json:"triggered_at"`
}

// PriceCheckResult 价格检查任务的结构化结果
type PriceCheckResult struct {
	AlertID      string `json:"alert_id"`
	Skipped      bool   `json:"skipped"`
	Reason       string `json:"reason,omitempty"`
	Error        string `json:"error,omitempty"`
	OffersFound  int    `json:"offers_found"`
	OffersStored int    `json:"offers_stored"`
}

// ScanResult 扫描结果
type ScanResult struct {
	Due      int `json:"due"`
	Enqueued int `json:"enqueued"`
}
