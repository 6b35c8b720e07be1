package main

import (
	"context"
	"fmt"

	"github.com/ceyewan/flake/allocator"
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/config"
	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/server"
	"github.com/ceyewan/flake/snowflake"
	"github.com/ceyewan/flake/xerrors"
)

// AppConfig flaked 的完整配置，对应 flake.yaml
type AppConfig struct {
	Log       clog.Config           `mapstructure:"log"`
	Metrics   metrics.Config        `mapstructure:"metrics"`
	Snowflake snowflake.Config      `mapstructure:"snowflake"`
	Allocator AllocatorConfig       `mapstructure:"allocator"`
	Redis     connector.RedisConfig `mapstructure:"redis"`
	Etcd      connector.EtcdConfig  `mapstructure:"etcd"`
	HTTP      server.Config         `mapstructure:"http"`
}

// AllocatorConfig 机器 ID 租约，启用后机器 ID 由 Redis / Etcd 分配
type AllocatorConfig struct {
	Enabled bool `mapstructure:"enabled"`

	allocator.Config `mapstructure:",squash"`
}

// loadConfig 读取配置文件、.env 与环境变量
//
// 必须对根结构体 Unmarshal：对子键 UnmarshalKey 时环境变量覆盖不会生效。
func loadConfig(ctx context.Context, loader config.Loader) (*AppConfig, error) {
	if err := loader.Load(ctx); err != nil {
		return nil, xerrors.Wrap(err, "load config")
	}
	var cfg AppConfig
	if err := loader.Unmarshal(&cfg); err != nil {
		return nil, xerrors.Wrap(err, "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if !c.Allocator.Enabled {
		return nil
	}
	if c.Snowflake.MachineID != nil {
		return xerrors.Wrap(xerrors.ErrInvalidInput,
			"snowflake.machine_id and allocator.enabled are mutually exclusive")
	}

	bits := machineBits(c.Snowflake)
	capacity := uint64(1) << bits
	if c.Allocator.MaxID < 0 || uint64(c.Allocator.MaxID) > capacity {
		return xerrors.Wrapf(xerrors.ErrInvalidInput,
			"allocator.max_id %d exceeds the %d ids a %d-bit machine id can hold",
			c.Allocator.MaxID, capacity, bits)
	}

	switch c.Allocator.Driver {
	case "", allocator.DriverRedis:
		if c.Redis.Addr == "" {
			return xerrors.Wrap(xerrors.ErrInvalidInput, "redis.addr is required by the redis allocator")
		}
	case allocator.DriverEtcd:
		if len(c.Etcd.Endpoints) == 0 {
			return xerrors.Wrap(xerrors.ErrInvalidInput, "etcd.endpoints is required by the etcd allocator")
		}
	}
	return nil
}

// machineBits 生成器实际使用的机器 ID 位宽，四个位宽全为 0 时取默认布局
func machineBits(c snowflake.Config) uint8 {
	if c.BitLenTime == 0 && c.BitLenSequence == 0 && c.BitLenDataCenterID == 0 && c.BitLenMachineID == 0 {
		return snowflake.DefaultBitLenMachineID
	}
	return c.BitLenMachineID
}

// newAllocator 连接后端并创建租约分配器，返回的 closer 负责释放连接
func newAllocator(ctx context.Context, cfg *AppConfig, logger clog.Logger, meter metrics.Meter) (allocator.Allocator, func() error, error) {
	connOpts := []connector.Option{connector.WithLogger(logger), connector.WithMeter(meter)}
	allocOpts := []allocator.Option{allocator.WithLogger(logger), allocator.WithMeter(meter)}

	var conn connector.Connector
	switch cfg.Allocator.Driver {
	case allocator.DriverEtcd:
		etcd, err := connector.NewEtcd(&cfg.Etcd, connOpts...)
		if err != nil {
			return nil, nil, err
		}
		conn = etcd
		allocOpts = append(allocOpts, allocator.WithEtcdConnector(etcd))
	default:
		redis, err := connector.NewRedis(&cfg.Redis, connOpts...)
		if err != nil {
			return nil, nil, err
		}
		conn = redis
		allocOpts = append(allocOpts, allocator.WithRedisConnector(redis))
	}

	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	alloc, err := allocator.New(&cfg.Allocator.Config, allocOpts...)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return alloc, conn.Close, nil
}

// watchLogLevel 配置文件中 log.level 变更时调整日志级别
func watchLogLevel(ctx context.Context, loader config.Loader, logger clog.Logger) error {
	ch, err := loader.Watch(ctx, "log.level")
	if err != nil {
		return err
	}
	go func() {
		for ev := range ch {
			level, err := clog.ParseLevel(fmt.Sprint(ev.Value))
			if err != nil {
				logger.Warn("ignore invalid log level", clog.Any("value", ev.Value), clog.Error(err))
				continue
			}
			if err := logger.SetLevel(level); err != nil {
				logger.Warn("set log level failed", clog.Error(err))
				continue
			}
			logger.Info("log level changed",
				clog.Any("old", ev.OldValue),
				clog.String("new", level.String()))
		}
	}()
	return nil
}
