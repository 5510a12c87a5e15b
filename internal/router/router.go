package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/adaptor"

	"FareWatch/internal/handler"
	"FareWatch/internal/middleware"
	"FareWatch/pkg/metrics"
)

func Register(h *server.Hertz) {
	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.CORSMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())

	h.GET("/healthz", handler.Healthz)
	h.GET("/readyz", handler.Readyz)
	h.GET("/metrics", adaptor.HertzHandler(metrics.Handler()))

	v1 := h.Group("/v1")
	v1.Use(middleware.UserIdentityMiddleware())

	v1.GET("/usage", handler.GetUsage)
	v1.GET("/airports/search", middleware.AirportSearchRateLimitMiddleware(), handler.SearchAirports)

	// 价格提醒路由
	alerts := v1.Group("/alerts")
	{
		alerts.GET("", handler.ListAlerts)
		alerts.POST("", middleware.AlertWriteRateLimitMiddleware(), handler.CreateAlert)
		alerts.GET("/:alert_id", handler.GetAlert)
		alerts.PATCH("/:alert_id", middleware.AlertWriteRateLimitMiddleware(), handler.UpdateAlert)
		alerts.DELETE("/:alert_id", handler.DeleteAlert)
		alerts.POST("/:alert_id/pause", handler.PauseAlert)
		alerts.POST("/:alert_id/resume", handler.ResumeAlert)
		alerts.GET("/:alert_id/prices", handler.GetPriceHistory)
		alerts.GET("/:alert_id/prices/daily", handler.GetDailyLowest)
	}
}
