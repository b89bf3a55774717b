package consts

import "time"

const (
	// RequestId 请求id名称
	RequestId   = "request_id"
	Operator    = "operator"
	OperatorCtx = "operator_claims"
	JWTTokenCtx = "token_ctx"

	DateLayout   = "2006-01-02"
	TimeLayout   = "2006-01-02 15:04:05"
	TimeLayoutMs = "2006-01-02 15:04:05.000"
)

const (
	// 运行状态缓存
	RunStatusPrefix   = "gridflow:run:status:"
	RunProgressPrefix = "gridflow:run:progress:"
	// 默认redis过期时间
	RedisExrDefault = time.Hour * 24 * 5
)
