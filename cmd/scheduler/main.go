package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"FareWatch/config"
	"FareWatch/internal/queue"
	"FareWatch/pkg/logger"
	"FareWatch/pkg/snowflake"
	"FareWatch/storage"
)

// 调度进程只负责周期投递扫描任务，扫描本身由 worker 消费执行
func main() {
	logger.Init("scheduler")
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if config.Cfg.UsesMemoryQueue() {
		logger.Logger.Fatal("Scheduler requires QUEUE_DRIVER=rabbitmq, the memory queue runs its trigger inside the worker")
	}

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	q, err := queue.New()
	if err != nil {
		logger.Logger.Fatal("Failed to initialize task queue", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.Duration("interval", config.Cfg.SchedulerInterval),
		zap.String("environment", config.Cfg.Environment),
	)

	trigger := queue.StartAlertScanTrigger(ctx, q, config.Cfg.SchedulerInterval)
	defer trigger.Stop()

	<-ctx.Done()

	logger.Logger.Info("Scheduler service shutting down gracefully")
}
