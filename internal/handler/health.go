package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudwego/hertz/pkg/app"

	"FareWatch/storage"
)

// Healthz 存活检查
func Healthz(ctx context.Context, c *app.RequestContext) {
	c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz 依赖检查，任一依赖不可用时返回 503
func Readyz(ctx context.Context, c *app.RequestContext) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	checks := storage.Ping(pingCtx)
	status := http.StatusOK
	for _, errMsg := range checks {
		if errMsg != "" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, map[string]interface{}{
		"status": state,
		"checks": checks,
	})
}
