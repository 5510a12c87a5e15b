package otel

// Resource 描述产生 telemetry 数据的服务，附加到所有 span 和指标上

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const serviceNamespace = "farewatch"

// ServiceAttributes 服务标识属性
func ServiceAttributes(cfg Config) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
		semconv.ServiceNamespace(serviceNamespace),
	}
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := append(ServiceAttributes(cfg), semconv.TelemetrySDKLanguageGo)
	res, err := resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithHost(),
		resource.WithOSType(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}
