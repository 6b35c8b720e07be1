// Package config 为 flake 提供基于 Viper 的配置加载能力。
//
// 配置来源与优先级（由高到低）：
//
//	环境变量（<PREFIX>_SNOWFLAKE_MACHINE_ID）
//	.env 文件
//	环境特定配置（<name>.<env>.yaml，由 <PREFIX>_ENV 选择）
//	基础配置（<name>.yaml）
//	SetDefault 设置的默认值
//
// 基本使用：
//
//	loader := config.MustLoad(&config.Config{Name: "flake", EnvPrefix: "FLAKE"})
//
//	var sfCfg snowflake.Config
//	_ = loader.UnmarshalKey("snowflake", &sfCfg)
//
//	ch, _ := loader.Watch(ctx, "log.level")
//	for ev := range ch {
//		_ = logger.SetLevel(clog.ParseLevel(ev.Value.(string)))
//	}
package config

import (
	"context"
	"time"
)

// Loader 配置加载器
type Loader interface {
	// Load 读取所有来源并开始监听配置文件
	Load(ctx context.Context) error

	// SetDefault 设置默认值，需在 Load 之前调用
	SetDefault(key string, value any)

	Get(key string) any
	GetString(key string) string

	Unmarshal(v any) error
	UnmarshalKey(key string, v any) error

	// Watch 订阅 key 的变更，ctx 取消后通道关闭
	Watch(ctx context.Context, key string) (<-chan Event, error)

	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}
