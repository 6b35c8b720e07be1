package allocator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/connector"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

// allocScript 从 offset 开始环形扫描，SET NX EX 抢占第一个空闲 ID
var allocScript = redis.NewScript(`
local prefix = KEYS[1]
local value = ARGV[1]
local ttl = tonumber(ARGV[2])
local max_id = tonumber(ARGV[3])
local offset = tonumber(ARGV[4])

for i = 0, max_id - 1 do
	local id = (offset + i) % max_id
	if redis.call("SET", prefix .. ":" .. id, value, "NX", "EX", ttl) then
		return id
	end
end
return -1
`)

// renewScript 仅当值仍属于本实例时续期
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript 仅当值仍属于本实例时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisAllocator struct {
	client  *redis.Client
	cfg     *Config
	logger  clog.Logger
	metrics *allocatorMetrics

	// value 标识本实例持有的租约
	value string

	mu       sync.Mutex
	id       int64
	key      string
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newRedisAllocator(cfg *Config, conn connector.RedisConnector, logger clog.Logger, m *allocatorMetrics) *redisAllocator {
	return &redisAllocator{
		client:  conn.GetClient(),
		cfg:     cfg,
		logger:  logger.With(clog.String("driver", DriverRedis)),
		metrics: m,
		value:   instanceValue(),
		id:      -1,
		stopCh:  make(chan struct{}),
	}
}

func (a *redisAllocator) Allocate(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.key != "" {
		return a.id, nil
	}

	offset := rand.IntN(a.cfg.MaxID)
	id, err := allocScript.Run(ctx, a.client, []string{a.cfg.KeyPrefix},
		a.value, a.cfg.ttlSeconds(), a.cfg.MaxID, offset).Int64()
	if err != nil {
		a.metrics.allocated(ctx, metrics.OutcomeError)
		a.logger.Error("redis allocate failed", clog.String("key_prefix", a.cfg.KeyPrefix), clog.Error(err))
		return 0, xerrors.WithCode(xerrors.Wrap(err, "redis allocate"), "allocate_failed")
	}
	if id < 0 {
		a.metrics.allocated(ctx, metrics.OutcomeError)
		return 0, xerrors.WithCode(xerrors.Wrapf(ErrIDExhausted, "max_id %d", a.cfg.MaxID), "id_exhausted")
	}

	a.id = id
	a.key = fmt.Sprintf("%s:%d", a.cfg.KeyPrefix, id)
	a.metrics.allocated(ctx, metrics.OutcomeSuccess)
	a.logger.Info("id allocated", clog.Int64("id", id), clog.String("key", a.key))
	return id, nil
}

func (a *redisAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	a.mu.Lock()
	key := a.key
	a.mu.Unlock()
	if key == "" {
		errCh <- xerrors.WithCode(ErrNotAllocated, "not_allocated")
		return errCh
	}

	interval := a.cfg.TTL / 3
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := a.renew(ctx, key); err != nil {
					a.metrics.renewFailed(ctx)
					a.logger.Error("lease renewal failed", clog.String("key", key), clog.Error(err))
					errCh <- err
					return
				}
				a.logger.Debug("lease renewed", clog.String("key", key))
			}
		}
	}()
	return errCh
}

func (a *redisAllocator) renew(ctx context.Context, key string) error {
	renewCtx, cancel := context.WithTimeout(ctx, a.cfg.TTL/3)
	defer cancel()

	n, err := renewScript.Run(renewCtx, a.client, []string{key}, a.value, a.cfg.ttlSeconds()).Int64()
	if err != nil {
		return xerrors.WithCode(xerrors.Wrap(err, "redis renew"), "renew_failed")
	}
	if n == 0 {
		return xerrors.WithCode(xerrors.Wrapf(ErrLeaseExpired, "key %s", key), "lease_expired")
	}
	return nil
}

func (a *redisAllocator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.key == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, a.client, []string{a.key}, a.value).Err(); err != nil {
			a.logger.Warn("release id failed", clog.String("key", a.key), clog.Error(err))
		} else {
			a.logger.Info("id released", clog.Int64("id", a.id), clog.String("key", a.key))
		}
		a.key = ""
	})
}

// instanceValue 生成租约持有者标识：主机名 + 随机串
func instanceValue() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + ":" + uuid.NewString()
}
