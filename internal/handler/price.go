package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"FareWatch/internal/model"
	"FareWatch/internal/service"
	"FareWatch/pkg/response"
)

// GetPriceHistory 价格历史，sort=recent|cheapest，limit/offset 分页
func GetPriceHistory(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var query model.PriceHistoryQuery
	if err := c.BindQuery(&query); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	history, err := service.Price().History(ctx, userID, c.Param("alert_id"), query)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, history)
}

// GetDailyLowest 每日最低价
func GetDailyLowest(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	daily, err := service.Price().DailyLowest(ctx, userID, c.Param("alert_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, daily)
}
