// Package errors 定义了消息服务统一使用的业务错误类型。
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code 是业务错误的分类。
type Code string

const (
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeInvalidFlow      Code = "INVALID_FLOW"
	CodeNotFound         Code = "NOT_FOUND"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeUnavailable      Code = "UNAVAILABLE"
	CodeDeadlineExceeded Code = "DEADLINE_EXCEEDED"
	CodeInternal         Code = "INTERNAL"
)

// AppError 携带错误分类、面向客户端的提示以及底层原因。
type AppError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is 让 errors.Is 按错误分类比较，而不是按指针比较。
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || e.Message == t.Message)
}

// Constructors
func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// WithCause 为预定义的领域错误附加底层原因，分类与提示保持不变。
func WithCause(sentinel error, cause error) error {
	var appErr *AppError
	if !stderrors.As(sentinel, &appErr) {
		return Wrap(CodeInternal, sentinel.Error(), cause)
	}
	return Wrap(appErr.Code, appErr.Message, cause)
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArgument, msg)
}

func InvalidFlow(msg string) error {
	return New(CodeInvalidFlow, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Unauthorized(msg string) error {
	return New(CodeUnauthenticated, msg)
}

func Forbidden(msg string) error {
	return New(CodePermissionDenied, msg)
}

func Internal(msg string, cause error) error {
	return Wrap(CodeInternal, msg, cause)
}

func Unavailable(msg string, cause error) error {
	return Wrap(CodeUnavailable, msg, cause)
}

func DeadlineExceeded(msg string, cause error) error {
	return Wrap(CodeDeadlineExceeded, msg, cause)
}

// CodeOf 返回错误链上第一个 AppError 的分类；不是 AppError 时视为 INTERNAL。
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// MessageOf 返回可以安全展示给客户端的提示信息。
func MessageOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Code != CodeInternal {
		return appErr.Message
	}
	return "服务器内部错误"
}

// HTTPStatus 将错误分类映射为 HTTP 状态码。
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument, CodeInvalidFlow:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
