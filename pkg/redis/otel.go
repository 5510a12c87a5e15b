package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// TracingHook 为每条 Redis 命令生成 span 并记录耗时
type TracingHook struct {
	tracer   trace.Tracer
	attrs    []attribute.KeyValue
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewTracingHook 指标创建失败时只保留 tracing
func NewTracingHook(serviceName string, db int) *TracingHook {
	meter := otel.Meter(serviceName + ".redis")
	total, _ := meter.Int64Counter(
		"redis.commands.total",
		metric.WithDescription("Total number of Redis commands"),
		metric.WithUnit("{command}"),
	)
	duration, _ := meter.Float64Histogram(
		"redis.command.duration",
		metric.WithDescription("Redis command duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0),
	)

	return &TracingHook{
		tracer: otel.Tracer(serviceName + ".redis"),
		attrs: []attribute.KeyValue{
			semconv.DBSystemRedis,
			semconv.DBRedisDBIndex(db),
		},
		total:    total,
		duration: duration,
	}
}

func (h *TracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h *TracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := h.tracer.Start(ctx, cmd.FullName(),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(h.attrs...),
		)
		defer span.End()

		span.SetAttributes(semconv.DBOperation(cmd.Name()))
		if keys := commandKeys(cmd.Args()); len(keys) > 0 {
			span.SetAttributes(attribute.StringSlice("redis.keys", keys))
		}

		start := time.Now()
		err := next(ctx, cmd)

		status := "success"
		switch {
		case errors.Is(err, redis.Nil):
			status = "not_found"
		case err != nil:
			status = "error"
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		}

		h.record(ctx, time.Since(start), attribute.String("redis.command", cmd.Name()), attribute.String("redis.status", status))
		return err
	}
}

func (h *TracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		ctx, span := h.tracer.Start(ctx, "redis.pipeline",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(h.attrs...),
			trace.WithAttributes(attribute.Int("redis.pipeline.count", len(cmds))),
		)
		defer span.End()

		start := time.Now()
		err := next(ctx, cmds)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		h.record(ctx, time.Since(start), attribute.String("redis.command", "pipeline"))
		return err
	}
}

func (h *TracingHook) record(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	opt := metric.WithAttributes(attrs...)
	if h.total != nil {
		h.total.Add(ctx, 1, opt)
	}
	if h.duration != nil {
		h.duration.Record(ctx, d.Seconds(), opt)
	}
}

// commandKeys 只取第一个参数作为 key，值不进 span
func commandKeys(args []interface{}) []string {
	if len(args) < 2 {
		return nil
	}
	key, ok := args[1].(string)
	if !ok {
		return nil
	}
	if len(key) > 100 {
		key = key[:100] + "..."
	}
	return []string{strings.ToValidUTF8(key, "")}
}
