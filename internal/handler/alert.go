package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"FareWatch/internal/middleware"
	"FareWatch/internal/model/dto"
	"FareWatch/internal/service"
	"FareWatch/pkg/errors"
	"FareWatch/pkg/response"
)

// currentUser 路由组已挂载 UserIdentityMiddleware
func currentUser(ctx context.Context, c *app.RequestContext) (string, bool) {
	userID, ok := middleware.GetUserID(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return "", false
	}
	return userID, true
}

// CreateAlert 创建提醒
func CreateAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.CreateAlertRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	alert, err := service.Alert().CreateAlert(ctx, userID, req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Created(ctx, c, alert)
}

// ListAlerts 查询提醒列表，可按 status 过滤
func ListAlerts(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var query dto.AlertListQuery
	if err := c.BindQuery(&query); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	alerts, err := service.Alert().ListAlerts(ctx, userID, query.Status)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.SuccessWithMeta(ctx, c, alerts, map[string]interface{}{"count": len(alerts)})
}

// GetAlert 提醒详情
func GetAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	detail, err := service.Alert().GetAlert(ctx, userID, c.Param("alert_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, detail)
}

// UpdateAlert 修改提醒
func UpdateAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	var req dto.UpdateAlertRequest
	if err := c.BindJSON(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	alert, err := service.Alert().UpdateAlert(ctx, userID, c.Param("alert_id"), req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, alert)
}

// PauseAlert 暂停提醒
func PauseAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	alert, err := service.Alert().PauseAlert(ctx, userID, c.Param("alert_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, alert)
}

// ResumeAlert 恢复提醒，立即进入下一轮扫描
func ResumeAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	alert, err := service.Alert().ResumeAlert(ctx, userID, c.Param("alert_id"))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.Success(ctx, c, alert)
}

// DeleteAlert 删除提醒
func DeleteAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := currentUser(ctx, c)
	if !ok {
		return
	}

	if err := service.Alert().DeleteAlert(ctx, userID, c.Param("alert_id")); err != nil {
		response.Error(ctx, c, err)
		return
	}
	response.NoContent(ctx, c)
}
