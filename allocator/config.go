package allocator

import (
	"time"

	"github.com/ceyewan/flake/xerrors"
)

const (
	DriverRedis = "redis"
	DriverEtcd  = "etcd"
)

// Config 租约分配器配置
//
//	allocator:
//	  driver: etcd
//	  key_prefix: flake:machine
//	  max_id: 32
//	  ttl: 30s
type Config struct {
	// Driver 后端类型: "redis" | "etcd"
	Driver string `mapstructure:"driver"`

	// KeyPrefix 键前缀，默认 "flake:machine"，实际键为 <prefix>:<id>
	KeyPrefix string `mapstructure:"key_prefix"`

	// MaxID 可分配范围 [0, MaxID)，默认 32，不应超过生成器 machine id 位宽能表示的数量
	MaxID int `mapstructure:"max_id"`

	// TTL 租约有效期，默认 30s，按秒取整且至少 1s
	TTL time.Duration `mapstructure:"ttl"`
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = DriverRedis
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "flake:machine"
	}
	if c.MaxID == 0 {
		c.MaxID = 32
	}
	if c.TTL == 0 {
		c.TTL = 30 * time.Second
	}
}

func (c *Config) validate() error {
	if c.Driver != DriverRedis && c.Driver != DriverEtcd {
		return xerrors.WithCode(xerrors.Wrapf(ErrInvalidConfig, "driver %q", c.Driver), "unsupported_driver")
	}
	if c.MaxID <= 0 {
		return xerrors.WithCode(xerrors.Wrapf(ErrInvalidConfig, "max_id %d", c.MaxID), "max_id_out_of_range")
	}
	if c.TTL < time.Second {
		return xerrors.WithCode(xerrors.Wrapf(ErrInvalidConfig, "ttl %v", c.TTL), "ttl_too_short")
	}
	return nil
}

func (c *Config) ttlSeconds() int64 {
	return int64(c.TTL / time.Second)
}
