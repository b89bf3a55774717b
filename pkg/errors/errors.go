package errors

import (
	stderrors "errors"
	"fmt"
	"gridflow/pkg/errors/ecode"
)

// CodeError 带业务错误码的错误
type CodeError struct {
	Code    int
	Message string
	cause   error
}

func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *CodeError) Unwrap() error {
	return e.cause
}

// WithCode 创建一个带错误码的错误
func WithCode(code int, msg string) error {
	if msg == "" {
		msg = ecode.Message(code)
	}
	return &CodeError{Code: code, Message: msg}
}

// Wrap 用错误码包装底层错误
func Wrap(err error, code int, msg string) error {
	if err == nil {
		return nil
	}
	if msg == "" {
		msg = ecode.Message(code)
	}
	return &CodeError{Code: code, Message: msg, cause: err}
}

// DecodeErr 解析出错误码与提示信息，nil 表示成功
func DecodeErr(err error) (int, string) {
	if err == nil {
		return ecode.Success, ecode.Message(ecode.Success)
	}
	var ce *CodeError
	if stderrors.As(err, &ce) {
		return ce.Code, ce.Error()
	}
	return ecode.Unknown, err.Error()
}

// Is / As 透传标准库，方便调用方只引入一个 errors 包
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}
