package snowflake

import (
	"github.com/ceyewan/flake/allocator"
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
)

// Option 生成器选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
	clock  Clock

	machineIDFunc    allocator.Provider
	dataCenterIDFunc allocator.Provider
	machineIDCheck   func(uint64) bool
	dataCenterCheck  func(uint64) bool
}

// WithLogger 注入日志记录器，自动追加 snowflake 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("snowflake")
		}
	}
}

// WithMeter 注入指标收集器；未注入时发号路径不做任何指标记录
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithClock 替换时间源，主要用于测试
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithMachineIDFunc 设置机器 ID 解析函数，Config.MachineID 已指定时不会调用
//
//	snowflake.WithMachineIDFunc(allocator.Lower16BitPrivateIP)
//	snowflake.WithMachineIDFunc(allocator.ProviderFrom(ctx, alloc))
func WithMachineIDFunc(fn allocator.Provider) Option {
	return func(o *options) {
		o.machineIDFunc = fn
	}
}

// WithDataCenterIDFunc 设置数据中心 ID 解析函数
func WithDataCenterIDFunc(fn allocator.Provider) Option {
	return func(o *options) {
		o.dataCenterIDFunc = fn
	}
}

// WithMachineIDCheck 设置机器 ID 校验函数，返回 false 时 New 返回 ErrCheckMachineIDFailed
func WithMachineIDCheck(fn func(uint64) bool) Option {
	return func(o *options) {
		o.machineIDCheck = fn
	}
}

// WithDataCenterIDCheck 设置数据中心 ID 校验函数
func WithDataCenterIDCheck(fn func(uint64) bool) Option {
	return func(o *options) {
		o.dataCenterCheck = fn
	}
}
