package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"

	"FareWatch/pkg/errors"
	"FareWatch/pkg/response"
)

const (
	// IdentityKey 请求上下文中的用户 ID
	IdentityKey = "user_id"
	// UserIDHeader 上游网关注入的用户标识
	UserIDHeader = "X-User-ID"

	maxUserIDLength = 64
)

// UserIdentityMiddleware 从上游网关注入的请求头读取用户 ID，缺失时返回 401
func UserIdentityMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		userID := strings.TrimSpace(string(c.GetHeader(UserIDHeader)))
		if userID == "" || len(userID) > maxUserIDLength {
			response.Error(ctx, c, errors.Unauthorized)
			c.Abort()
			return
		}

		c.Set(IdentityKey, userID)
		c.Next(ctx)
	}
}

// GetUserID 从请求上下文中获取用户 ID
func GetUserID(ctx context.Context, c *app.RequestContext) (string, bool) {
	userID, exists := c.Get(IdentityKey)
	if !exists {
		return "", false
	}

	id, ok := userID.(string)
	if !ok {
		return "", false
	}

	return id, true
}
