package errors

import (
	stderrors "errors"
)

func (d Definition) Error() string {
	return d.Message
}

// Is 按 Code 比较，方便 errors.Is(err, errors.AlertNotFound)
func (d Definition) Is(target error) bool {
	t, ok := target.(Definition)
	if !ok {
		return false
	}
	return t.Code == d.Code
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InvalidRequest  = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	Unauthorized    = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests, please retry later"}
)

// 提醒模块错误。
var (
	AlertNotFound       = Definition{Code: "ALERT_NOT_FOUND", Message: "Alert not found"}
	AlertStatusInvalid  = Definition{Code: "ALERT_STATUS_INVALID", Message: "Alert status does not allow this operation"}
	AlertReturnRequired = Definition{Code: "ALERT_RETURN_REQUIRED", Message: "Return date is required for round trips"}
	AlertRouteMissing   = Definition{Code: "ALERT_ROUTE_MISSING", Message: "Alert route is missing airport codes"}
)

// 额度模块错误。
var (
	QuotaExceeded = Definition{Code: "QUOTA_EXCEEDED", Message: "Monthly provider call limit exceeded"}
)

// 外部供应商错误。
var (
	ProviderUnavailable = Definition{Code: "PROVIDER_UNAVAILABLE", Message: "Failed to search from external provider"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:      InvalidRequest,
	Unauthorized.Code:        Unauthorized,
	TooManyRequests.Code:     TooManyRequests,
	AlertNotFound.Code:       AlertNotFound,
	AlertStatusInvalid.Code:  AlertStatusInvalid,
	AlertReturnRequired.Code: AlertReturnRequired,
	AlertRouteMissing.Code:   AlertRouteMissing,
	QuotaExceeded.Code:       QuotaExceeded,
	ProviderUnavailable.Code: ProviderUnavailable,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// SkipMessageError 任务已处理完毕但结果为"跳过"，不进入重试
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

// IsSkipMessageError 判断是否为不需要重试的跳过错误
func IsSkipMessageError(err error) bool {
	var skip *SkipMessageError
	return stderrors.As(err, &skip)
}
