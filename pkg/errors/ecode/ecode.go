package ecode

// 业务错误码，0 表示成功
const (
	Success        = 0
	Unknown        = 10000
	ValidateErr    = 10001
	NotFoundErr    = 10002
	RequireAuthErr = 10003
	StateErr       = 10004 // 运行状态不允许当前操作
	LimitErr       = 10005 // 超出配置上限
)

var messages = map[int]string{
	Success:        "success",
	Unknown:        "unknown error",
	ValidateErr:    "invalid params",
	NotFoundErr:    "record not found",
	RequireAuthErr: "auth required",
	StateErr:       "invalid run state",
	LimitErr:       "limit exceeded",
}

// Message 返回错误码的默认描述
func Message(code int) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return messages[Unknown]
}
