package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"
	"go.uber.org/zap"

	"FareWatch/config"
	"FareWatch/internal/handler"
	"FareWatch/internal/queue"
	"FareWatch/internal/schedule"
	"FareWatch/internal/service"
	"FareWatch/pkg/amadeus"
	"FareWatch/pkg/logger"
	"FareWatch/pkg/metrics"
	"FareWatch/pkg/otel"
	"FareWatch/pkg/snowflake"
	"FareWatch/storage"
)

func main() {
	logger.Init("worker")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownOTel, err := otel.Init(ctx, "worker")
	if err != nil {
		logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			logger.Logger.Error("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// worker 没有供应商凭证无法工作
	if err := amadeus.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize Amadeus client", zap.Error(err))
	}

	if err := metrics.InitMetrics(); err != nil {
		logger.Logger.Warn("Failed to initialize provider metrics", zap.Error(err))
	}
	metrics.Register()

	q, err := queue.New()
	if err != nil {
		logger.Logger.Fatal("Failed to initialize task queue", zap.Error(err))
	}

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("queue_driver", config.Cfg.QueueDriver),
		zap.Int("concurrency", config.Cfg.PriceCheckConcurrency),
		zap.String("environment", config.Cfg.Environment),
	)

	go serveMetrics(ctx)

	// 内存队列只在本进程内可见，扫描触发器必须和消费者跑在一起
	if config.Cfg.UsesMemoryQueue() {
		trigger := queue.StartAlertScanTrigger(ctx, q, config.Cfg.SchedulerInterval)
		defer trigger.Stop()
		logger.Logger.Info("Alert scan trigger running in-process",
			zap.Duration("interval", config.Cfg.SchedulerInterval),
		)
	}

	// 阻塞直到 ctx 取消
	queue.StartAllConsumers(ctx, q, service.PriceCheck(), schedule.NewDefaultAlertScheduler(q))

	logger.Logger.Info("Worker service shutting down gracefully")
}

// serveMetrics 暴露队列和 worker 的 Prometheus 指标
func serveMetrics(ctx context.Context) {
	addr := net.JoinHostPort(config.Cfg.ServerHost, config.Cfg.WorkerMetricsPort)
	h := server.New(server.WithHostPorts(addr))
	h.GET("/metrics", adaptor.HertzHandler(metrics.Handler()))
	h.GET("/healthz", handler.Healthz)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Error("Failed to shutdown metrics server", zap.Error(err))
		}
	}()

	logger.Logger.Info("Worker metrics listening", zap.String("addr", addr))
	h.Spin()
}
