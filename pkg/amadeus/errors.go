package amadeus

import (
	"errors"
	"fmt"
	"regexp"
)

// APIError 供应商返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("amadeus API error (%d): %s", e.StatusCode, e.Body)
}

// 兜底：错误经过其他层包装丢失类型时，从文本里识别 "(4xx)"
var clientErrorPattern = regexp.MustCompile(`\(4\d{2}\)`)

// IsClientError 4xx 表示请求本身有问题，重试不会改变结果
func IsClientError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
	}
	return clientErrorPattern.MatchString(err.Error())
}

// IsRetryable 网络错误、5xx、超时都值得重试
func IsRetryable(err error) bool {
	return err != nil && !IsClientError(err)
}
