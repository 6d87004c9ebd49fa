package errors

import (
	stderrors "errors"
	"fmt"
)

// As/Is 透传标准库实现，调用方无需同时导入两个 errors 包。
func As(err error, target interface{}) bool { return stderrors.As(err, target) }
func Is(err, target error) bool             { return stderrors.Is(err, target) }

// ErrorCode 业务错误码，CLI 依据错误码输出诊断信息。
type ErrorCode string

const (
	ErrorCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	ErrorCodeConnectivity    ErrorCode = "CONNECTIVITY_ERROR"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeAmbiguousResult ErrorCode = "AMBIGUOUS_RESULT"
)

// ToolError 携带错误码与原因的业务错误，贯穿 Fetcher 与 Launcher。
type ToolError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// New 创建指定错误码的业务错误。
func New(code ErrorCode, format string, args ...interface{}) *ToolError {
	return &ToolError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap 创建携带原因的业务错误，便于 errors.Is/As 追溯底层失败。
func Wrap(code ErrorCode, cause error, format string, args ...interface{}) *ToolError {
	return &ToolError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// CodeOf 提取错误链上的业务错误码；非业务错误返回空串。
func CodeOf(err error) ErrorCode {
	var te *ToolError
	if As(err, &te) {
		return te.Code
	}
	return ""
}

// IsCode 判断错误链上是否存在指定错误码。
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
