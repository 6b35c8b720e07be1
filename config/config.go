package config

import (
	"context"
	"strings"

	"github.com/ceyewan/flake/xerrors"
)

// Config 加载器配置
type Config struct {
	Name      string   // 配置文件名（不含扩展名），默认 "config"
	Paths     []string // 搜索路径，默认 [".", "./config"]
	FileType  string   // 文件类型，默认 "yaml"
	EnvPrefix string   // 环境变量前缀，默认 "FLAKE"
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "config"
	}
	if c.Paths == nil {
		c.Paths = []string{".", "./config"}
	}
	if c.FileType == "" {
		c.FileType = "yaml"
	}
	if c.EnvPrefix == "" {
		c.EnvPrefix = "FLAKE"
	}
	c.EnvPrefix = strings.ToUpper(c.EnvPrefix)
}

// New 创建加载器，不读取任何来源，调用 Load 后生效
func New(cfg *Config, opts ...Option) (Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()
	return newLoader(cfg, opts...), nil
}

// MustLoad 创建并加载配置，失败时 panic，仅用于初始化阶段
func MustLoad(cfg *Config, opts ...Option) Loader {
	l := xerrors.Must(New(cfg, opts...))
	if err := l.Load(context.Background()); err != nil {
		panic(xerrors.Wrap(err, "load config"))
	}
	return l
}
