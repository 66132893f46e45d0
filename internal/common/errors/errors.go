// Package errors 定义业务错误码和错误处理
package errors

import (
	"fmt"
)

// AppError 应用错误
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 实现 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的应用错误
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装错误
func Wrap(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithMessage 修改错误消息
func (e *AppError) WithMessage(message string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: message,
		Err:     e.Err,
	}
}

// WithError 添加原始错误
func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// 通用错误码 (1000-1999)
var (
	ErrUnknown          = New(1000, "未知错误")
	ErrInvalidParams    = New(1001, "参数错误")
	ErrNotFound         = New(1002, "资源不存在")
	ErrAlreadyExists    = New(1003, "资源已存在")
	ErrDatabaseError    = New(1004, "数据库错误")
	ErrCacheError       = New(1005, "缓存错误")
	ErrInternalError    = New(1006, "内部错误")
	ErrExternalService  = New(1007, "外部服务错误")
	ErrRateLimitExceed  = New(1008, "请求过于频繁")
	ErrOperationFailed  = New(1009, "操作失败")
	ErrResourceNotFound = New(1010, "资源不存在")
)

// 认证错误码 (2000-2999)
var (
	ErrUnauthorized     = New(2000, "未登录")
	ErrTokenExpired     = New(2001, "登录已过期")
	ErrTokenInvalid     = New(2002, "无效的令牌")
	ErrTokenRefreshFail = New(2003, "刷新令牌失败")
	ErrPermissionDenied = New(2004, "权限不足")
	ErrAccountDisabled  = New(2005, "账号已禁用")
)

// 用户错误码 (3000-3999)
var (
	ErrUserNotFound = New(3000, "用户不存在")
	ErrUserExists   = New(3001, "用户已存在")
)

// 折扣码错误码 (4000-4999)
var (
	ErrDiscountNotFound       = New(4000, "折扣码不存在")
	ErrDiscountExists         = New(4001, "折扣码已存在")
	ErrDiscountGenerateFailed = New(4002, "折扣码生成失败")
	ErrDiscountNotStarted     = New(4003, "折扣码未生效")
	ErrDiscountExpired        = New(4004, "折扣码已过期")
	ErrDiscountUsedUp         = New(4005, "折扣码已达使用上限")
	ErrDiscountBelowMinOrder  = New(4006, "未达到最低订单金额")
	ErrDiscountOwnerMismatch  = New(4007, "折扣码不适用于该卖家")
	ErrDiscountItemMismatch   = New(4008, "折扣码不适用于该物品")
	ErrDiscountNotAllowed     = New(4009, "折扣码未授予该用户")
	ErrDiscountKindInvalid    = New(4010, "无效的折扣类型")
	ErrDiscountValueInvalid   = New(4011, "无效的折扣值")
	ErrDiscountPeriodInvalid  = New(4012, "无效的有效期")
)

// 授予记录错误码 (5000-5999)
var (
	ErrAssignmentNotFound   = New(5000, "授予记录不存在")
	ErrAssignmentNotStarted = New(5001, "授予尚未生效")
	ErrAssignmentExpired    = New(5002, "授予已失效")
	ErrAssignmentLimitUsed  = New(5003, "已达个人使用上限")
	ErrAssignmentOnPublic   = New(5004, "公开折扣码无需授予")
)

// IsAppError 判断是否为应用错误
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetAppError 获取应用错误
func GetAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrUnknown.WithError(err)
}
