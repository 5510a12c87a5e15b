package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"FareWatch/internal/service"
	"FareWatch/pkg/response"
)

// GetUsage 当月供应商调用额度，只读不计数
func GetUsage(ctx context.Context, c *app.RequestContext) {
	usage, err := service.Quota().Usage(ctx)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, usage)
}
