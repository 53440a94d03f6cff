package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"intranet_admin/pkg/log"

	"github.com/gin-gonic/gin"
)

// BodyLogWriter 用于记录响应的body
type BodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w *BodyLogWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// RequestLogger 记录每个请求的耗时、状态码和请求/响应 body。
// 路径以 redactPrefixes 任一前缀开头时不记录 body（登录、注册等含密码和令牌的接口）；
// websocket 握手的连接会被接管，也不包装响应。
func RequestLogger(redactPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		redact := websocketUpgrade(c.Request)
		for _, p := range redactPrefixes {
			if strings.HasPrefix(path, p) {
				redact = true
				break
			}
		}

		var requestBody []byte
		var blw *BodyLogWriter
		if !redact {
			if c.Request.Body != nil {
				requestBody, _ = io.ReadAll(c.Request.Body)
			}
			// 将读取的请求体重新设置回去，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))

			blw = &BodyLogWriter{
				ResponseWriter: c.Writer,
				body:           &bytes.Buffer{},
			}
			c.Writer = blw
		}

		c.Next()

		fields := []interface{}{
			"latency", time.Since(startTime),
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
		}
		if blw != nil {
			fields = append(fields,
				"request_body", string(requestBody),
				"response_body", blw.body.String(),
			)
		}
		log.Infow("HTTP request", fields...)
	}
}
