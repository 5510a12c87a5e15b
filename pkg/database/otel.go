package database

import (
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey      = "otel:span"
	startTimeKey = "otel:start_time"
	maxSQLLength = 500
)

// TracingPlugin 为 GORM 的每次操作生成 span，并记录查询次数和耗时
type TracingPlugin struct {
	tracer   trace.Tracer
	queries  metric.Int64Counter
	duration metric.Float64Histogram
}

func NewTracingPlugin(serviceName string) *TracingPlugin {
	meter := otel.Meter(serviceName + ".gorm")
	queries, _ := meter.Int64Counter(
		"db.queries.total",
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("{query}"),
	)
	duration, _ := meter.Float64Histogram(
		"db.query.duration",
		metric.WithDescription("Database query duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)

	return &TracingPlugin{
		tracer:   otel.Tracer(serviceName + ".gorm"),
		queries:  queries,
		duration: duration,
	}
}

// Name 实现 gorm.Plugin 接口
func (p *TracingPlugin) Name() string {
	return "otel_tracing"
}

// Initialize 在各类操作前后注册回调
func (p *TracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("otel:before_query", p.before); err != nil {
		return err
	}
	if err := cb.Query().After("gorm:query").Register("otel:after_query", p.after); err != nil {
		return err
	}
	if err := cb.Create().Before("gorm:create").Register("otel:before_create", p.before); err != nil {
		return err
	}
	if err := cb.Create().After("gorm:create").Register("otel:after_create", p.after); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("otel:before_update", p.before); err != nil {
		return err
	}
	if err := cb.Update().After("gorm:update").Register("otel:after_update", p.after); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("otel:before_delete", p.before); err != nil {
		return err
	}
	if err := cb.Delete().After("gorm:delete").Register("otel:after_delete", p.after); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("otel:before_row", p.before); err != nil {
		return err
	}
	if err := cb.Row().After("gorm:row").Register("otel:after_row", p.after); err != nil {
		return err
	}
	if err := cb.Raw().Before("gorm:raw").Register("otel:before_raw", p.before); err != nil {
		return err
	}
	return cb.Raw().After("gorm:raw").Register("otel:after_raw", p.after)
}

func (p *TracingPlugin) before(db *gorm.DB) {
	name := "db." + db.Statement.Table
	if db.Statement.Table == "" {
		name = "db.query"
	}
	ctx, span := p.tracer.Start(db.Statement.Context, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(semconv.DBSystemPostgreSQL, attribute.String("db.table", db.Statement.Table)),
	)
	db.InstanceSet(startTimeKey, time.Now())
	db.InstanceSet(spanKey, span)
	db.Statement.Context = ctx
}

func (p *TracingPlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := v.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	operation := operationName(db.Statement.SQL.String())
	sql := db.Statement.SQL.String()
	if len(sql) > maxSQLLength {
		sql = sql[:maxSQLLength] + "..."
	}
	span.SetAttributes(
		semconv.DBOperation(operation),
		semconv.DBStatement(sql),
		attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
	)

	status := "success"
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		status = "error"
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	var elapsed float64
	if t, ok := db.InstanceGet(startTimeKey); ok {
		if start, ok := t.(time.Time); ok {
			elapsed = time.Since(start).Seconds()
		}
	}

	opt := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.status", status),
	)
	if p.queries != nil {
		p.queries.Add(db.Statement.Context, 1, opt)
	}
	if p.duration != nil {
		p.duration.Record(db.Statement.Context, elapsed, opt)
	}
}

// operationName SQL 的第一个关键字，参数值不进 span
func operationName(sql string) string {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "unknown"
	}
	if i := strings.IndexByte(sql, ' '); i > 0 {
		sql = sql[:i]
	}
	return strings.ToLower(sql)
}
