package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/snowflake"
	"github.com/ceyewan/flake/xerrors"
)

// 响应错误码
const (
	CodeInvalidCount      = "invalid_count"
	CodeInvalidID         = "invalid_id"
	CodeRateLimited       = "rate_limited"
	CodeInternal          = "internal"
	CodeGeneratorRequired = "generator_required"
)

var (
	// ErrInvalidConfig 服务配置非法
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrInvalidInput, "server: invalid config")

	// ErrGeneratorNil 未提供生成器
	ErrGeneratorNil = xerrors.New("server: generator is nil")
)

// errorResponse 错误响应体
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// statusOf 将生成器错误映射为 HTTP 状态码
//
// 时钟相关错误是暂时性的，返回 503 让调用方重试。
func statusOf(err error) int {
	switch {
	case xerrors.Is(err, snowflake.ErrClockMovedBackwards),
		xerrors.Is(err, snowflake.ErrOverTimeLimit),
		xerrors.Is(err, snowflake.ErrStartTimeAhead):
		return http.StatusServiceUnavailable
	case xerrors.Is(err, xerrors.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, status int, code string, msg string) {
	c.Set(metrics.GinErrorCodeKey, code)
	c.AbortWithStatusJSON(status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: c.GetString(requestIDKey),
	})
}

func abortWithGenerateError(c *gin.Context, err error) {
	code := xerrors.GetCode(err)
	if code == "" {
		code = CodeInternal
	}
	abortWithError(c, statusOf(err), code, err.Error())
}
