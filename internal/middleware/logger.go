package middleware

import (
	"bytes"
	"io"
	"time"

	"gridflow/internal/consts"
	"gridflow/pkg/logger"

	"github.com/gin-gonic/gin"
)

// 请求体超过该长度时日志里截断
const maxLoggedBody = 2048

func Logger(c *gin.Context) {
	// 请求前
	t := time.Now()
	reqPath := c.Request.URL.Path
	reqId := c.GetString(consts.RequestId)
	method := c.Request.Method
	ip := c.ClientIP()
	var requestBody []byte
	if c.Request.Body != nil {
		body, err := io.ReadAll(c.Request.Body)
		if err == nil {
			requestBody = body
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
	}
	logged := requestBody
	if len(logged) > maxLoggedBody {
		logged = logged[:maxLoggedBody]
	}

	logger.Info("[Request Start]",
		logger.Pair(consts.RequestId, reqId),
		logger.Pair("host", ip),
		logger.Pair("path", reqPath),
		logger.Pair("method", method),
		logger.Pair("body", string(logged)))

	c.Next()
	// 请求后
	logger.Info("[Request End]",
		logger.Pair(consts.RequestId, reqId),
		logger.Pair("path", reqPath),
		logger.Pair("status", c.Writer.Status()),
		logger.Pair("operator", c.GetString(consts.Operator)),
		logger.Pair("cost", time.Since(t)))
}
