package connector

import (
	"context"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

type redisConnector struct {
	cfg     *RedisConfig
	client  *redis.Client
	logger  clog.Logger
	metrics *connMetrics
	healthy atomic.Bool
}

// NewRedis 创建 Redis 连接器，不会立即建立连接
func NewRedis(cfg *RedisConfig, opts ...Option) (RedisConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "redis config is nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	cm, err := newConnMetrics(o.meter)
	if err != nil {
		return nil, err
	}

	c := &redisConnector{
		cfg:     cfg,
		logger:  o.logger.With(clog.String("connector", "redis"), clog.String("name", cfg.Name)),
		metrics: cm,
	}
	c.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	})
	return c, nil
}

func (c *redisConnector) Connect(ctx context.Context) error {
	c.metrics.attempt(ctx, "redis")
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.metrics.failure(ctx, "redis")
		c.logger.Error("connect to redis failed", clog.String("addr", c.cfg.Addr), clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrConnection, err), "redis connector[%s]", c.cfg.Name)
	}
	c.healthy.Store(true)
	c.logger.Info("connected to redis", clog.String("addr", c.cfg.Addr))
	return nil
}

func (c *redisConnector) Close() error {
	c.healthy.Store(false)
	if err := c.client.Close(); err != nil {
		c.logger.Error("close redis failed", clog.Error(err))
		return xerrors.Wrapf(err, "redis connector[%s]: close", c.cfg.Name)
	}
	c.logger.Info("redis connection closed")
	return nil
}

func (c *redisConnector) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("redis health check failed", clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrHealthCheck, err), "redis connector[%s]", c.cfg.Name)
	}
	c.healthy.Store(true)
	return nil
}

func (c *redisConnector) IsHealthy() bool          { return c.healthy.Load() }
func (c *redisConnector) Name() string             { return c.cfg.Name }
func (c *redisConnector) GetClient() *redis.Client { return c.client }
