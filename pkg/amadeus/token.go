package amadeus

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"FareWatch/pkg/logger"
	"FareWatch/pkg/metrics"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	// tokenRefreshLeeway 在过期前提前刷新
	tokenRefreshLeeway = 60 * time.Second

	defaultTokenFetchTimeout = 15 * time.Second
)

// TokenCache 进程内共享的 access token
// 并发调用只会触发一次获取，过期前 60 秒视为失效
type TokenCache struct {
	cfg        *clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time

	mu    sync.RWMutex
	token *oauth2.Token
	group singleflight.Group
}

func NewTokenCache(baseURL, apiKey, apiSecret string, httpClient *http.Client) *TokenCache {
	return &TokenCache{
		cfg: &clientcredentials.Config{
			ClientID:     apiKey,
			ClientSecret: apiSecret,
			TokenURL:     baseURL + "/v1/security/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Token 返回可用的 access token，必要时向供应商获取
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do("token", func() (interface{}, error) {
		if tok, ok := c.cached(); ok {
			return tok, nil
		}

		// 获取结果由所有等待者共享，不跟随第一个调用方的取消
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout())
		defer cancel()
		if c.httpClient != nil {
			fetchCtx = context.WithValue(fetchCtx, oauth2.HTTPClient, c.httpClient)
		}

		tok, err := c.cfg.Token(fetchCtx)
		if err != nil {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
				return nil, &APIError{StatusCode: retrieveErr.Response.StatusCode, Body: string(retrieveErr.Body)}
			}
			return nil, err
		}
		metrics.RecordTokenRefresh(ctx)

		c.mu.Lock()
		c.token = tok
		c.mu.Unlock()

		logger.Logger.Debug("Amadeus access token refreshed",
			zap.Time("expires_at", tok.Expiry),
		)
		return tok.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate 丢弃被供应商拒绝的 token
// 只有当前缓存仍是 stale 时才清空，避免把别的协程刚换好的 token 扔掉
func (c *TokenCache) Invalidate(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != nil && c.token.AccessToken == stale {
		c.token = nil
	}
}

func (c *TokenCache) fetchTimeout() time.Duration {
	if c.httpClient != nil && c.httpClient.Timeout > 0 {
		return c.httpClient.Timeout
	}
	return defaultTokenFetchTimeout
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == nil || c.token.AccessToken == "" {
		return "", false
	}
	if !c.token.Expiry.IsZero() && !c.now().Before(c.token.Expiry.Add(-tokenRefreshLeeway)) {
		return "", false
	}
	return c.token.AccessToken, true
}
