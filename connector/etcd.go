package connector

import (
	"context"
	"sync/atomic"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

type etcdConnector struct {
	cfg     *EtcdConfig
	client  *clientv3.Client
	logger  clog.Logger
	metrics *connMetrics
	healthy atomic.Bool
}

// NewEtcd 创建 Etcd 连接器
//
// clientv3.New 不会阻塞等待连接，真正的可达性由 Connect 校验。
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "etcd config is nil")
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

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Username:    cfg.Username,
		Password:    cfg.Password,
	})
	if err != nil {
		return nil, xerrors.Wrapf(xerrors.Join(ErrConnection, err), "etcd connector[%s]", cfg.Name)
	}

	return &etcdConnector{
		cfg:     cfg,
		client:  client,
		logger:  o.logger.With(clog.String("connector", "etcd"), clog.String("name", cfg.Name)),
		metrics: cm,
	}, nil
}

func (c *etcdConnector) Connect(ctx context.Context) error {
	c.metrics.attempt(ctx, "etcd")
	if err := c.probe(ctx); err != nil {
		c.metrics.failure(ctx, "etcd")
		c.logger.Error("connect to etcd failed", clog.Any("endpoints", c.cfg.Endpoints), clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrConnection, err), "etcd connector[%s]", c.cfg.Name)
	}
	c.healthy.Store(true)
	c.logger.Info("connected to etcd", clog.Any("endpoints", c.cfg.Endpoints))
	return nil
}

// probe 读取一个不存在的 key，只要集群可应答即视为可用
func (c *etcdConnector) probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	_, err := c.client.Get(probeCtx, "flake/health-check", clientv3.WithCountOnly())
	return err
}

func (c *etcdConnector) Close() error {
	c.healthy.Store(false)
	if err := c.client.Close(); err != nil {
		c.logger.Error("close etcd failed", clog.Error(err))
		return xerrors.Wrapf(err, "etcd connector[%s]: close", c.cfg.Name)
	}
	c.logger.Info("etcd connection closed")
	return nil
}

func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	if err := c.probe(ctx); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(xerrors.Join(ErrHealthCheck, err), "etcd connector[%s]", c.cfg.Name)
	}
	c.healthy.Store(true)
	return nil
}

func (c *etcdConnector) IsHealthy() bool             { return c.healthy.Load() }
func (c *etcdConnector) Name() string                { return c.cfg.Name }
func (c *etcdConnector) GetClient() *clientv3.Client { return c.client }
