package router

import (
	"time"

	"github.com/paycore/internal/logger"

	"github.com/gin-gonic/gin"
)

// RequestLog logs one line per request with latency and status.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infow("http_request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// Recovery converts panics into 500s and logs the stack via gin's default
// writer.
func Recovery() gin.HandlerFunc {
	return gin.Recovery()
}
