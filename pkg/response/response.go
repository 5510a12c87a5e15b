package response

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"go.uber.org/zap"

	"FareWatch/pkg/errors"
	"FareWatch/pkg/logger"
)

// ErrorResponse 统一的错误响应格式
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Details map[string]interface{} `json:"details,omitempty"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
}

// SuccessResponse 统一的成功响应格式
type SuccessResponse struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta,omitempty"`
}

// StatusFor 业务错误码到 HTTP 状态码
func StatusFor(err error) int {
	var def errors.Definition
	if !stderrors.As(err, &def) {
		return http.StatusInternalServerError
	}

	switch def.Code {
	case errors.InvalidRequest.Code, errors.AlertReturnRequired.Code, errors.AlertRouteMissing.Code:
		return http.StatusBadRequest
	case errors.Unauthorized.Code:
		return http.StatusUnauthorized
	case errors.AlertNotFound.Code:
		return http.StatusNotFound
	case errors.AlertStatusInvalid.Code:
		return http.StatusConflict
	case errors.QuotaExceeded.Code, errors.TooManyRequests.Code:
		return http.StatusTooManyRequests
	case errors.ProviderUnavailable.Code:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func detailFor(err error) (code, message string) {
	var def errors.Definition
	if stderrors.As(err, &def) {
		return def.Code, def.Message
	}
	// 内部错误不把原始信息返回给调用方
	return "INTERNAL_ERROR", "Internal server error"
}

// Error 返回错误响应
func Error(ctx context.Context, c *app.RequestContext, err error) {
	ErrorWithDetails(ctx, c, err, nil)
}

func ErrorWithDetails(ctx context.Context, c *app.RequestContext, err error, details map[string]interface{}) {
	statusCode := StatusFor(err)
	code, message := detailFor(err)

	if statusCode >= http.StatusInternalServerError {
		logger.Logger.Error("Request failed",
			zap.String("path", string(c.Path())),
			zap.String("code", code),
			zap.Error(err),
		)
	}

	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

func Success(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
	})
}

func Created(ctx context.Context, c *app.RequestContext, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{
		Data: data,
	})
}

func SuccessWithMeta(ctx context.Context, c *app.RequestContext, data interface{}, meta map[string]interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Data: data,
		Meta: meta,
	})
}

func BindError(ctx context.Context, c *app.RequestContext, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    errors.InvalidRequest.Code,
			Message: err.Error(),
		},
	})
}

// NoContent 返回 204 No Content（用于 DELETE 等操作）
func NoContent(ctx context.Context, c *app.RequestContext) {
	c.Status(http.StatusNoContent)
}
