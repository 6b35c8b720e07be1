package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinErrorCodeKey 处理函数通过 c.Set(GinErrorCodeKey, code) 上报响应错误码，
// 中间件将其记为 code 标签（如 invalid_count、rate_limited、clock_moved_backwards）
const GinErrorCodeKey = "metrics.error_code"

// GinMiddleware 返回记录 HTTP RED 指标的 gin 中间件
//
// 路由标签取 gin 的路由模板（如 /v1/ids/:id），未命中路由统一记为 unknown。
// skipRoutes 中的路由模板不计入指标，通常是 /metrics 抓取与 /healthz 探活。
func GinMiddleware(httpMetrics *HTTPServerMetrics, skipRoutes ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipRoutes))
	for _, r := range skipRoutes {
		skip[r] = struct{}{}
	}

	return func(c *gin.Context) {
		if httpMetrics == nil {
			c.Next()
			return
		}
		if _, ok := skip[c.FullPath()]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = UnknownRoute
		}
		httpMetrics.Observe(c.Request.Context(), c.Request.Method, route, c.Writer.Status(),
			c.GetString(GinErrorCodeKey), time.Since(start))
	}
}
