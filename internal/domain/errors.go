package domain

import (
	"errors"
	"fmt"
)

const (
	// ErrCodeInvalidInput 表示调用方输入不合法（语言无法识别、缺少 query/url 等）。
	ErrCodeInvalidInput = "invalid_input"
	// ErrCodeUpstreamUnavailable 表示上游站点不可达（仅详情解析会向外暴露）。
	ErrCodeUpstreamUnavailable = "upstream_unavailable"
)

// Error 是对外可分类的错误（带 error_code）。
// HTTP/CLI 层只依赖 Code 做映射，不解析 Msg。
type Error struct {
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：%s：%v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s：%s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// InvalidInput 构造 invalid_input 错误。
func InvalidInput(format string, args ...any) error {
	return &Error{Code: ErrCodeInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// Upstream 构造 upstream_unavailable 错误，保留底层原因。
func Upstream(msg string, err error) error {
	return &Error{Code: ErrCodeUpstreamUnavailable, Msg: msg, Err: err}
}

// ErrorCode 从 error 中提取 error_code；若不是 *Error 则返回空串。
func ErrorCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
