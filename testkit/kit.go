// Package testkit 提供 flake 测试共用的依赖：日志、指标、外部服务连接。
//
// 需要 Redis / Etcd 的测试通过 GetRedisConnector / GetEtcdConnector 获取连接，
// 服务不可达时测试会被 Skip 而不是失败。地址可通过环境变量覆盖：
//
//	FLAKE_TEST_REDIS_ADDR=127.0.0.1:6379
//	FLAKE_TEST_ETCD_ENDPOINTS=127.0.0.1:2379
package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
)

// Kit 通用测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回带超时上下文、测试日志与真实 Meter 的工具包，资源随测试结束释放
func NewKit(t *testing.T) *Kit {
	t.Helper()
	ctx, cancel := NewContext(t, 30*time.Second)
	t.Cleanup(cancel)

	meter := NewMeter()
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	return &Kit{
		Ctx:    ctx,
		Logger: NewLogger(),
		Meter:  meter,
	}
}

// NewLogger 返回测试用 logger；设置 FLAKE_TEST_VERBOSE 时输出 debug 日志，否则静默
func NewLogger() clog.Logger {
	if os.Getenv("FLAKE_TEST_VERBOSE") == "" {
		return clog.Discard()
	}
	logger, err := clog.New(clog.NewDevDefaultConfig(), clog.WithNamespace("test"))
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回启用的 Meter，测试可以抓取 Handler 校验指标
func NewMeter() metrics.Meter {
	meter, err := metrics.New(&metrics.Config{Enabled: true, ServiceName: "flake-test"})
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 返回带超时的测试上下文
func NewContext(t *testing.T, timeout time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), timeout)
}

// NewID 返回 8 位随机串，用于隔离测试间的 key 前缀
func NewID() string {
	return uuid.New().String()[0:8]
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
