package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/flake/clog"
)

// clientLimiter 单个客户端的令牌桶及最后访问时间
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

// limiterPool 按客户端键维护令牌桶，并定期回收空闲客户端
type limiterPool struct {
	limit rate.Limit
	burst int

	clients sync.Map // map[string]*clientLimiter
	logger  clog.Logger

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newLimiterPool(cfg RateLimitConfig, logger clog.Logger) *limiterPool {
	p := &limiterPool{
		limit:  rate.Limit(cfg.Rate),
		burst:  cfg.Burst,
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go p.cleanup(cfg.CleanupInterval, cfg.IdleTimeout)

	logger.Info("rate limiter created",
		clog.Float64("rate", cfg.Rate),
		clog.Int("burst", cfg.Burst),
		clog.Duration("idle_timeout", cfg.IdleTimeout))
	return p
}

// allowN 尝试为 key 取 n 个令牌
func (p *limiterPool) allowN(key string, n int) bool {
	cl := p.get(key)
	now := time.Now()

	cl.mu.Lock()
	allowed := cl.limiter.AllowN(now, n)
	cl.lastSeen = now
	cl.mu.Unlock()
	return allowed
}

func (p *limiterPool) get(key string) *clientLimiter {
	if v, ok := p.clients.Load(key); ok {
		return v.(*clientLimiter)
	}
	cl := &clientLimiter{
		limiter:  rate.NewLimiter(p.limit, p.burst),
		lastSeen: time.Now(),
	}
	actual, _ := p.clients.LoadOrStore(key, cl)
	return actual.(*clientLimiter)
}

func (p *limiterPool) cleanup(interval, idleTimeout time.Duration) {
	defer close(p.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.evictIdle(time.Now(), idleTimeout)
		case <-p.stopCh:
			return
		}
	}
}

// evictIdle 回收空闲超过 idleTimeout 的客户端，返回回收数量
func (p *limiterPool) evictIdle(now time.Time, idleTimeout time.Duration) int {
	count := 0
	p.clients.Range(func(key, value any) bool {
		cl := value.(*clientLimiter)
		cl.mu.Lock()
		idle := now.Sub(cl.lastSeen)
		cl.mu.Unlock()

		if idle > idleTimeout {
			p.clients.Delete(key)
			count++
		}
		return true
	})
	if count > 0 {
		p.logger.Debug("evicted idle rate limiters", clog.Int("count", count))
	}
	return count
}

// close 停止回收协程并等待其退出，可重复调用
func (p *limiterPool) close() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.done
}
