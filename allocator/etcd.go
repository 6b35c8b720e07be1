package allocator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

type etcdAllocator struct {
	client  *clientv3.Client
	cfg     *Config
	logger  clog.Logger
	metrics *allocatorMetrics
	value   string

	mu       sync.Mutex
	leaseID  clientv3.LeaseID
	id       int64
	key      string
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newEtcdAllocator(cfg *Config, conn connector.EtcdConnector, logger clog.Logger, m *allocatorMetrics) *etcdAllocator {
	return &etcdAllocator{
		client:  conn.GetClient(),
		cfg:     cfg,
		logger:  logger.With(clog.String("driver", DriverEtcd)),
		metrics: m,
		value:   instanceValue(),
		id:      -1,
		stopCh:  make(chan struct{}),
	}
}

// Allocate 申请租约后从随机起点扫描，通过 Txn(ModRevision == 0) 抢占空闲 key
func (a *etcdAllocator) Allocate(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.key != "" {
		return a.id, nil
	}

	lease, err := a.client.Grant(ctx, a.cfg.ttlSeconds())
	if err != nil {
		a.metrics.allocated(ctx, metrics.OutcomeError)
		a.logger.Error("etcd grant lease failed", clog.Error(err))
		return 0, xerrors.WithCode(xerrors.Wrap(err, "etcd grant"), "allocate_failed")
	}

	offset := rand.IntN(a.cfg.MaxID)
	for i := 0; i < a.cfg.MaxID; i++ {
		id := (offset + i) % a.cfg.MaxID
		key := fmt.Sprintf("%s:%d", a.cfg.KeyPrefix, id)

		resp, err := a.client.Txn(ctx).
			If(clientv3.Compare(clientv3.ModRevision(key), "=", 0)).
			Then(clientv3.OpPut(key, a.value, clientv3.WithLease(lease.ID))).
			Commit()
		if err != nil {
			a.revoke(lease.ID)
			a.metrics.allocated(ctx, metrics.OutcomeError)
			a.logger.Error("etcd txn failed", clog.String("key", key), clog.Error(err))
			return 0, xerrors.WithCode(xerrors.Wrap(err, "etcd txn"), "allocate_failed")
		}
		if resp.Succeeded {
			a.leaseID = lease.ID
			a.id = int64(id)
			a.key = key
			a.metrics.allocated(ctx, metrics.OutcomeSuccess)
			a.logger.Info("id allocated",
				clog.Int64("id", a.id),
				clog.String("key", key),
				clog.Int64("lease_id", int64(lease.ID)),
			)
			return a.id, nil
		}
	}

	a.revoke(lease.ID)
	a.metrics.allocated(ctx, metrics.OutcomeError)
	return 0, xerrors.WithCode(xerrors.Wrapf(ErrIDExhausted, "max_id %d", a.cfg.MaxID), "id_exhausted")
}

func (a *etcdAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	a.mu.Lock()
	leaseID := a.leaseID
	a.mu.Unlock()
	if leaseID == 0 {
		errCh <- xerrors.WithCode(ErrNotAllocated, "not_allocated")
		return errCh
	}

	go func() {
		kaCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		kaCh, err := a.client.KeepAlive(kaCtx, leaseID)
		if err != nil {
			a.metrics.renewFailed(ctx)
			a.logger.Error("etcd keep alive failed", clog.Int64("lease_id", int64(leaseID)), clog.Error(err))
			errCh <- xerrors.WithCode(xerrors.Wrap(err, "etcd keep alive"), "renew_failed")
			return
		}

		for {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case ka, ok := <-kaCh:
				if ok && ka != nil {
					continue
				}
				// 通道在 stop 或 ctx 取消时也会关闭，此时不是租约丢失
				select {
				case <-a.stopCh:
					return
				case <-ctx.Done():
					return
				default:
				}
				a.metrics.renewFailed(ctx)
				a.logger.Error("lease expired", clog.Int64("lease_id", int64(leaseID)))
				errCh <- xerrors.WithCode(xerrors.Wrapf(ErrLeaseExpired, "lease %d", leaseID), "lease_expired")
				return
			}
		}
	}()
	return errCh
}

func (a *etcdAllocator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.leaseID == 0 {
			return
		}
		a.revoke(a.leaseID)
		a.logger.Info("id released",
			clog.Int64("id", a.id),
			clog.String("key", a.key),
			clog.Int64("lease_id", int64(a.leaseID)),
		)
		a.leaseID = 0
		a.key = ""
	})
}

// revoke 撤销租约，关联的 key 随之删除
func (a *etcdAllocator) revoke(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := a.client.Revoke(ctx, id); err != nil {
		a.logger.Warn("etcd revoke lease failed", clog.Int64("lease_id", int64(id)), clog.Error(err))
	}
}
