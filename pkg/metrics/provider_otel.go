package metrics

import (
	"context"
)

// 以下为包级快捷方法，指标未初始化时静默忽略

// RecordProviderRequest 记录供应商请求
func RecordProviderRequest(ctx context.Context, endpoint string, status int, duration float64) {
	if m := GetMetrics(); m != nil {
		m.RecordProviderRequest(ctx, endpoint, status, duration)
	}
}

// RecordTokenRefresh 记录一次 token 获取
func RecordTokenRefresh(ctx context.Context) {
	if m := GetMetrics(); m != nil {
		m.ProviderTokenRefresh.Add(ctx, 1)
	}
}

// RecordQuotaCall 记录计入额度的调用，denied 表示被拒绝
func RecordQuotaCall(ctx context.Context, denied bool) {
	m := GetMetrics()
	if m == nil {
		return
	}
	m.QuotaCallsTotal.Add(ctx, 1)
	if denied {
		m.QuotaDeniedTotal.Add(ctx, 1)
	}
}

// RecordPriceCheck 记录价格检查
func RecordPriceCheck(ctx context.Context, outcome string, duration float64, stored int) {
	if m := GetMetrics(); m != nil {
		m.RecordPriceCheck(ctx, outcome, duration, stored)
	}
}
