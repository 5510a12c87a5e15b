package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics OpenTelemetry 指标集合
type OTelMetrics struct {
	// 航班供应商相关指标
	ProviderRequestTotal    metric.Int64Counter
	ProviderRequestDuration metric.Float64Histogram
	ProviderTokenRefresh    metric.Int64Counter

	// 月度额度
	QuotaCallsTotal  metric.Int64Counter
	QuotaDeniedTotal metric.Int64Counter

	// 价格检查
	PriceCheckTotal    metric.Int64Counter
	PriceCheckDuration metric.Float64Histogram
	OffersStoredTotal  metric.Int64Counter
}

var (
	// 全局指标实例
	metrics *OTelMetrics
	// meter 用于创建指标
	meter = otel.Meter("farewatch")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	m := &OTelMetrics{}

	m.ProviderRequestTotal, err = meter.Int64Counter(
		"provider_requests_total",
		metric.WithDescription("Total number of flight provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	m.ProviderRequestDuration, err = meter.Float64Histogram(
		"provider_request_duration_seconds",
		metric.WithDescription("Flight provider request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30),
	)
	if err != nil {
		return err
	}

	m.ProviderTokenRefresh, err = meter.Int64Counter(
		"provider_token_refresh_total",
		metric.WithDescription("Total number of OAuth token fetches against the flight provider"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return err
	}

	m.QuotaCallsTotal, err = meter.Int64Counter(
		"quota_calls_total",
		metric.WithDescription("Total number of provider calls counted against the monthly quota"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	m.QuotaDeniedTotal, err = meter.Int64Counter(
		"quota_denied_total",
		metric.WithDescription("Total number of provider calls denied by the monthly quota"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	m.PriceCheckTotal, err = meter.Int64Counter(
		"price_check_total",
		metric.WithDescription("Total number of price checks by outcome"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return err
	}

	m.PriceCheckDuration, err = meter.Float64Histogram(
		"price_check_duration_seconds",
		metric.WithDescription("Time spent on a single price check in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.OffersStoredTotal, err = meter.Int64Counter(
		"price_records_stored_total",
		metric.WithDescription("Total number of price records stored"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return err
	}

	metrics = m
	return nil
}

// GetMetrics 获取全局指标实例，未初始化时返回 nil
func GetMetrics() *OTelMetrics {
	return metrics
}

// RecordProviderRequest 记录一次供应商请求
func (m *OTelMetrics) RecordProviderRequest(ctx context.Context, endpoint string, status int, duration float64) {
	attrs := metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.Int("status", status),
	)
	m.ProviderRequestTotal.Add(ctx, 1, attrs)
	m.ProviderRequestDuration.Record(ctx, duration, attrs)
}

// RecordPriceCheck 记录价格检查结果，outcome 为 success/skipped/failed
func (m *OTelMetrics) RecordPriceCheck(ctx context.Context, outcome string, duration float64, stored int) {
	m.PriceCheckTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.PriceCheckDuration.Record(ctx, duration, metric.WithAttributes(attribute.String("outcome", outcome)))
	if stored > 0 {
		m.OffersStoredTotal.Add(ctx, int64(stored))
	}
}
