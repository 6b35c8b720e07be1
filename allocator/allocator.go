// Package allocator 为 snowflake 生成器解析机器 ID 与数据中心 ID。
//
// 两类来源：
//
//   - Provider：一次性的解析函数，如 Static、Lower16BitPrivateIP，直接交给
//     snowflake.WithMachineIDFunc / WithDataCenterIDFunc
//   - Allocator：基于 Redis / Etcd 租约在集群内抢占唯一 ID，持有期间需要 KeepAlive，
//     通过 ProviderFrom 转换为 Provider
//
// 使用示例：
//
//	alloc, _ := allocator.New(&allocator.Config{Driver: "redis", MaxID: 32},
//	    allocator.WithRedisConnector(redisConn))
//	defer alloc.Stop()
//
//	gen, err := snowflake.New(&snowflake.Config{DataCenterID: snowflake.Uint64(0)},
//	    snowflake.WithMachineIDFunc(allocator.ProviderFrom(ctx, alloc)))
//
//	go func() {
//	    if err := <-alloc.KeepAlive(ctx); err != nil {
//	        // 租约丢失，ID 不再唯一，停止发号
//	    }
//	}()
package allocator

import (
	"context"

	"github.com/ceyewan/flake/xerrors"
)

// Provider 返回一个标识值，解析失败时返回错误
type Provider func() (uint64, error)

// Static 返回固定值的 Provider
func Static(v uint64) Provider {
	return func() (uint64, error) {
		return v, nil
	}
}

// Allocator 集群内唯一 ID 的租约分配器
type Allocator interface {
	// Allocate 抢占一个 [0, MaxID) 内的 ID
	Allocate(ctx context.Context) (int64, error)

	// KeepAlive 后台续约，续约失败或租约丢失时向通道发送一个错误
	KeepAlive(ctx context.Context) <-chan error

	// Stop 停止续约并释放 ID，可重复调用
	Stop()
}

// ProviderFrom 将 Allocator 适配为 Provider，每次调用都会执行一次 Allocate
func ProviderFrom(ctx context.Context, a Allocator) Provider {
	return func() (uint64, error) {
		id, err := a.Allocate(ctx)
		if err != nil {
			return 0, err
		}
		return uint64(id), nil
	}
}

// New 按 cfg.Driver 创建 Redis 或 Etcd 分配器
func New(cfg *Config, opts ...Option) (Allocator, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidConfig, "config_nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	m, err := newAllocatorMetrics(o.meter, cfg.Driver)
	if err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case DriverRedis:
		if o.redis == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
		}
		return newRedisAllocator(cfg, o.redis, o.logger, m), nil
	case DriverEtcd:
		if o.etcd == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "etcd_connector_required")
		}
		return newEtcdAllocator(cfg, o.etcd, o.logger, m), nil
	default:
		return nil, xerrors.WithCode(ErrInvalidConfig, "unsupported_driver")
	}
}
