package connector

import (
	"time"

	"github.com/ceyewan/flake/xerrors"
)

// RedisConfig Redis 连接配置
//
//	redis:
//	  addr: 127.0.0.1:6379
//	  db: 0
type RedisConfig struct {
	Name         string        `mapstructure:"name"`           // 连接器名称 (默认: "default")
	Addr         string        `mapstructure:"addr"`           // [必填] 地址，如 "127.0.0.1:6379"
	Password     string        `mapstructure:"password"`       // 认证密码
	DB           int           `mapstructure:"db"`             // 数据库编号
	PoolSize     int           `mapstructure:"pool_size"`      // 连接池大小 (默认: 10)
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 最小空闲连接数 (默认: 2)
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // 拨号超时 (默认: 5s)
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // 读取超时 (默认: 3s)
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // 写入超时 (默认: 3s)
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.PoolSize == 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = 2
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	if c.Addr == "" {
		return xerrors.Wrap(ErrConfig, "redis addr is required")
	}
	if c.DB < 0 {
		return xerrors.Wrapf(ErrConfig, "redis db %d is negative", c.DB)
	}
	return nil
}

// EtcdConfig Etcd 连接配置
//
//	etcd:
//	  endpoints: ["127.0.0.1:2379"]
//	  dial_timeout: 5s
type EtcdConfig struct {
	Name        string        `mapstructure:"name"`         // 连接器名称 (默认: "default")
	Endpoints   []string      `mapstructure:"endpoints"`    // [必填] 节点地址
	Username    string        `mapstructure:"username"`     // 用户名
	Password    string        `mapstructure:"password"`     // 密码
	DialTimeout time.Duration `mapstructure:"dial_timeout"` // 拨号超时 (默认: 5s)
}

func (c *EtcdConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
}

func (c *EtcdConfig) validate() error {
	if len(c.Endpoints) == 0 {
		return xerrors.Wrap(ErrConfig, "etcd endpoints are required")
	}
	for _, ep := range c.Endpoints {
		if ep == "" {
			return xerrors.Wrap(ErrConfig, "etcd endpoint is empty")
		}
	}
	return nil
}
