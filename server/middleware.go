package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ceyewan/flake/clog"
)

const (
	// HeaderRequestID 请求 ID 响应头，请求中已携带时沿用
	HeaderRequestID = "X-Request-ID"

	requestIDKey = "request_id"
)

// requestID 为每个请求分配 ID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// rateLimit 按客户端 IP 限流，超限返回 429
//
// 批量请求按 count 消耗令牌，参数非法时只消耗 1 个，由处理函数返回 400。
func rateLimit(pool *limiterPool) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if key == "" {
			c.Next()
			return
		}

		n := 1
		if c.FullPath() == routeIDs {
			if count, err := parseCount(c.Query("count"), MaxBatchLimit); err == nil {
				n = count
			}
		}
		if n > pool.burst {
			n = pool.burst
		}

		if !pool.allowN(key, n) {
			abortWithError(c, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
			return
		}
		c.Next()
	}
}

// accessLog 以 Debug 级别记录每个请求
func accessLog(logger clog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.DebugContext(c.Request.Context(), "http request",
			clog.String("method", c.Request.Method),
			clog.String("path", c.Request.URL.Path),
			clog.Int("status", c.Writer.Status()),
			clog.Duration("latency", time.Since(start)),
			clog.String("client_ip", c.ClientIP()),
			clog.String("request_id", c.GetString(requestIDKey)),
		)
	}
}
