package server

import (
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
)

// Option 服务选项
type Option func(*options)

type options struct {
	logger      clog.Logger
	meter       metrics.Meter
	service     string
	metricsPath string
}

// WithLogger 设置日志记录器，自动追加 http 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("http")
		}
	}
}

// WithMeter 设置指标收集器；设置后记录 HTTP RED 指标并暴露 /metrics
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithServiceName 指标中的 service 标签，默认 flaked
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.service = name
		}
	}
}

// WithMetricsPath 指标暴露路径，默认 /metrics
func WithMetricsPath(path string) Option {
	return func(o *options) {
		if path != "" {
			o.metricsPath = path
		}
	}
}
