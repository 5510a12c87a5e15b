package middleware

import (
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"FareWatch/pkg/logger"
)

// Init 初始化 HTTP 指标，需在 otel.Init 之后调用
func Init() error {
	if err := InitMetrics(otel.Meter("farewatch-http")); err != nil {
		logger.Logger.Error("Failed to initialize HTTP metrics", zap.Error(err))
		return err
	}

	logger.Logger.Info("All middlewares initialized successfully")
	return nil
}
