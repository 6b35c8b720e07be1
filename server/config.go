package server

import (
	"time"

	"github.com/ceyewan/flake/xerrors"
)

const (
	// MaxBatchLimit 单次请求可生成 ID 数量的上限
	MaxBatchLimit = 1000

	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 5 * time.Second
)

// Config HTTP 服务配置
//
// YAML 示例：
//
//	http:
//	  addr: ":8080"
//	  max_batch: 500
//	  rate_limit:
//	    enabled: true
//	    rate: 100
//	    burst: 200
type Config struct {
	Addr            string          `mapstructure:"addr"`
	MaxBatch        int             `mapstructure:"max_batch"`
	ReadTimeout     time.Duration   `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration   `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig 按客户端 IP 的令牌桶限流
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Rate 每秒补充的令牌数
	Rate float64 `mapstructure:"rate"`

	// Burst 桶容量
	Burst int `mapstructure:"burst"`

	// IdleTimeout 客户端空闲多久后回收其限流器，默认 5m
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`

	// CleanupInterval 回收检查间隔，默认 1m
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.MaxBatch == 0 {
		c.MaxBatch = MaxBatchLimit
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.RateLimit.IdleTimeout == 0 {
		c.RateLimit.IdleTimeout = 5 * time.Minute
	}
	if c.RateLimit.CleanupInterval == 0 {
		c.RateLimit.CleanupInterval = time.Minute
	}
}

func (c *Config) validate() error {
	if c.MaxBatch < 1 || c.MaxBatch > MaxBatchLimit {
		return xerrors.WithCode(
			xerrors.Wrapf(ErrInvalidConfig, "max_batch %d, must be in [1, %d]", c.MaxBatch, MaxBatchLimit),
			"invalid_max_batch",
		)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0) {
		return xerrors.WithCode(
			xerrors.Wrapf(ErrInvalidConfig, "rate limit rate=%v burst=%d must be positive",
				c.RateLimit.Rate, c.RateLimit.Burst),
			"invalid_rate_limit",
		)
	}
	return nil
}
