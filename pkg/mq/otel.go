package mq

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "farewatch.rabbitmq"

var (
	mqMessagesTotal   metric.Int64Counter
	mqMessageDuration metric.Float64Histogram
	mqErrorsTotal     metric.Int64Counter

	instrumentsOnce sync.Once
)

// initInstruments 首次使用时从全局 MeterProvider 创建，otel.Init 之前为 no-op
func initInstruments() {
	instrumentsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)
		mqMessagesTotal, _ = meter.Int64Counter(
			"mq.messages.total",
			metric.WithDescription("Total number of RabbitMQ messages published or consumed"),
			metric.WithUnit("{message}"),
		)
		mqMessageDuration, _ = meter.Float64Histogram(
			"mq.message.duration",
			metric.WithDescription("RabbitMQ publish and handling duration"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 15, 30),
		)
		mqErrorsTotal, _ = meter.Int64Counter(
			"mq.errors.total",
			metric.WithDescription("Number of RabbitMQ publish or handling errors"),
			metric.WithUnit("{error}"),
		)
	})
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartPublishSpan 创建发布 span，并把追踪上下文注入消息头
func StartPublishSpan(ctx context.Context, exchange, routingKey string, headers amqp.Table) (context.Context, trace.Span, amqp.Table) {
	ctx, span := tracer().Start(ctx, "rabbitmq.publish "+routingKey,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(routingKey),
			attribute.String("messaging.rabbitmq.exchange", exchange),
		),
	)

	out := make(amqp.Table, len(headers)+2)
	for k, v := range headers {
		out[k] = v
	}
	otel.GetTextMapPropagator().Inject(ctx, &MessageHeaderCarrier{Headers: out})
	return ctx, span, out
}

// StartConsumeSpan 从消息头恢复上游追踪上下文，创建处理 span
func StartConsumeSpan(ctx context.Context, queue string, msg amqp.Delivery) (context.Context, trace.Span) {
	ctx = otel.GetTextMapPropagator().Extract(ctx, &MessageHeaderCarrier{Headers: msg.Headers})
	return tracer().Start(ctx, "rabbitmq.process "+queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			semconv.MessagingSystem("rabbitmq"),
			semconv.MessagingDestinationName(queue),
			semconv.MessagingMessageID(msg.MessageId),
			attribute.Bool("messaging.rabbitmq.redelivered", msg.Redelivered),
		),
	)
}

// EndSpan 记录结果和指标后结束 span，operation 为 publish 或 process
func EndSpan(ctx context.Context, span trace.Span, operation, destination string, start time.Time, err error) {
	initInstruments()

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		mqErrorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("messaging.operation", operation),
			attribute.String("messaging.destination.name", destination),
		))
	}
	span.End()

	attrs := metric.WithAttributes(
		semconv.MessagingSystem("rabbitmq"),
		attribute.String("messaging.operation", operation),
		attribute.String("messaging.destination.name", destination),
		attribute.String("messaging.status", status),
	)
	mqMessagesTotal.Add(ctx, 1, attrs)
	mqMessageDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

// MessageHeaderCarrier 实现 propagation.TextMapCarrier 接口
type MessageHeaderCarrier struct {
	Headers amqp.Table
}

func (m *MessageHeaderCarrier) Get(key string) string {
	if val, ok := m.Headers[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func (m *MessageHeaderCarrier) Set(key, value string) {
	if m.Headers == nil {
		m.Headers = make(amqp.Table)
	}
	m.Headers[key] = value
}

func (m *MessageHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(m.Headers))
	for k := range m.Headers {
		keys = append(keys, k)
	}
	return keys
}
