package clog

import (
	"sync"

	"github.com/ceyewan/flake/xerrors"
)

var (
	defaultOnce   sync.Once
	defaultLogger Logger
)

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用开发环境默认配置；opts 用于命名空间等附加配置。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = NewDevDefaultConfig()
	}

	if err := config.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid log config")
	}

	return newLogger(config, applyOptions(opts...))
}

// Default 返回进程级默认 Logger（console 格式，info 级别，输出到 stderr）
//
// 组件在调用方未注入 Logger 时使用它，保证日志不会被静默丢弃。
func Default() Logger {
	defaultOnce.Do(func() {
		l, err := New(&Config{Level: "info", Format: "console", Output: "stderr"})
		if err != nil {
			defaultLogger = Discard()
			return
		}
		defaultLogger = l
	})
	return defaultLogger
}
