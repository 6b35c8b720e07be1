// Package server 通过 HTTP 暴露 ID 生成与拆解能力。
//
// 路由：
//
//	GET /v1/ids?count=n   生成 n 个 ID（十进制字符串，避免 JavaScript 精度丢失）
//	GET /v1/ids/:id       拆解 ID（任意 uint64，符号位被忽略）
//	GET /v1/layout        当前位布局
//	GET /healthz          存活检查
//	GET /metrics          Prometheus 指标（注入 Meter 时）
//
// 使用示例：
//
//	srv, err := server.New(&cfg.HTTP, gen, server.WithLogger(logger), server.WithMeter(meter))
//	if err != nil { ... }
//	if err := srv.Run(ctx); err != nil { ... }
//
// 只使用 Handler() 嵌入其他 http.Server 时，需要在结束时调用 Close 释放限流器的后台协程；
// Run / Serve 返回前会自动调用 Close。
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/snowflake"
	"github.com/ceyewan/flake/xerrors"
)

const (
	routeIDs       = "/v1/ids"
	routeDecompose = "/v1/ids/:id"
	routeLayout    = "/v1/layout"
	routeHealth    = "/healthz"
	routeMetrics   = "/metrics"
)

// Generator 服务依赖的生成器能力，*snowflake.Snowflake 满足该接口
type Generator interface {
	NextID() (uint64, error)
	Decompose(id uint64) snowflake.Decomposed
	Timestamp(id uint64) time.Time
	Layout() snowflake.Layout
	MachineID() uint64
	DataCenterID() uint64
}

var _ Generator = (*snowflake.Snowflake)(nil)

// Server HTTP 服务
type Server struct {
	cfg     Config
	gen     Generator
	logger  clog.Logger
	engine  *gin.Engine
	limiter *limiterPool
	http    *http.Server
}

// New 创建服务，cfg 为 nil 时使用默认配置
func New(cfg *Config, gen Generator, opts ...Option) (*Server, error) {
	if gen == nil {
		return nil, xerrors.WithCode(ErrGeneratorNil, CodeGeneratorRequired)
	}

	o := &options{logger: clog.Discard(), service: "flaked", metricsPath: routeMetrics}
	for _, opt := range opts {
		opt(o)
	}

	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    c,
		gen:    gen,
		logger: o.logger,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	if o.meter != nil {
		httpMetrics, err := metrics.NewHTTPServerMetrics(o.meter, o.service)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics.GinMiddleware(httpMetrics, o.metricsPath, routeHealth))
		engine.GET(o.metricsPath, gin.WrapH(o.meter.Handler()))
	}
	engine.GET(routeHealth, s.handleHealth)

	api := engine.Group("/")
	if c.RateLimit.Enabled {
		s.limiter = newLimiterPool(c.RateLimit, s.logger)
		api.Use(rateLimit(s.limiter))
	}
	api.GET(routeIDs, s.handleNextIDs)
	api.GET(routeDecompose, s.handleDecompose)
	api.GET(routeLayout, s.handleLayout)

	s.engine = engine
	s.http = &http.Server{
		Addr:         c.Addr,
		Handler:      engine,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
	return s, nil
}

// Handler 返回路由，便于测试或嵌入其他 http.Server
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 监听 Config.Addr 并提供服务，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return xerrors.Wrapf(err, "listen %s", s.cfg.Addr)
	}
	return s.Serve(ctx, ln)
}

// Serve 在给定 listener 上提供服务，ctx 取消后在 ShutdownTimeout 内关闭
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()
	s.logger.Info("http server started", clog.String("addr", ln.Addr().String()))

	defer s.Close()

	select {
	case err := <-errCh:
		if xerrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return xerrors.Wrap(err, "http serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	<-errCh
	if err != nil {
		s.logger.Error("http server shutdown failed", clog.Error(err))
		return xerrors.Wrap(err, "http shutdown")
	}
	s.logger.Info("http server stopped")
	return nil
}

// Close 停止限流器的空闲回收协程，可重复调用；不会关闭正在运行的 http.Server
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.close()
	}
	return nil
}
