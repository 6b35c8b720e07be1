// flaked 以 HTTP 服务形式提供 Snowflake ID。
//
// 启动：
//
//	flaked -config flake -config-dir ./configs
//
// 配置来源见 config 包；任意配置项都可以用 FLAKE_ 前缀的环境变量覆盖，
// 如 FLAKE_SNOWFLAKE_MACHINE_ID=7、FLAKE_HTTP_ADDR=:9000。
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/flake/allocator"
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/config"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/server"
	"github.com/ceyewan/flake/snowflake"
	"github.com/ceyewan/flake/xerrors"
)

func main() {
	name := flag.String("config", "flake", "config file name without extension")
	dir := flag.String("config-dir", ".", "directory containing the config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &config.Config{Name: *name, Paths: []string{*dir, "./configs"}}); err != nil {
		clog.Default().Error("flaked exited", clog.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, loaderCfg *config.Config) (err error) {
	loader, err := config.New(loaderCfg, config.WithLogger(clog.Default()))
	if err != nil {
		return err
	}
	cfg, err := loadConfig(ctx, loader)
	if err != nil {
		return err
	}

	logger, err := clog.New(&cfg.Log, clog.WithNamespace("flaked"))
	if err != nil {
		return err
	}
	defer logger.Flush()

	if err := watchLogLevel(ctx, loader, logger); err != nil {
		logger.Warn("log level hot reload disabled", clog.Error(err))
	}

	meter, err := metrics.New(&cfg.Metrics, metrics.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() {
		err = xerrors.Combine(err, meter.Shutdown(context.Background()))
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	genOpts := []snowflake.Option{snowflake.WithLogger(logger)}
	if cfg.Metrics.Enabled {
		genOpts = append(genOpts, snowflake.WithMeter(meter))
	}

	var (
		alloc     allocator.Allocator
		closeConn func() error
	)
	if cfg.Allocator.Enabled {
		if alloc, closeConn, err = newAllocator(ctx, cfg, logger, meter); err != nil {
			return err
		}
		defer func() {
			alloc.Stop()
			err = xerrors.Combine(err, closeConn())
		}()
		genOpts = append(genOpts, snowflake.WithMachineIDFunc(allocator.ProviderFrom(ctx, alloc)))
	}

	gen, err := snowflake.New(&cfg.Snowflake, genOpts...)
	if err != nil {
		return err
	}

	if alloc != nil {
		keepAlive := alloc.KeepAlive(runCtx)
		go func() {
			select {
			case err := <-keepAlive:
				if err != nil {
					// 租约丢失后其他实例可能拿到同一个机器 ID，不能继续发号
					logger.Error("machine id lease lost, shutting down", clog.Error(err))
					cancel()
				}
			case <-runCtx.Done():
			}
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	srvOpts := []server.Option{server.WithLogger(logger), server.WithServiceName(cfg.Metrics.ServiceName)}
	if cfg.Metrics.Enabled {
		srvOpts = append(srvOpts, server.WithMeter(meter), server.WithMetricsPath(cfg.Metrics.Path))
	}
	srv, err := server.New(&cfg.HTTP, gen, srvOpts...)
	if err != nil {
		return err
	}

	logger.Info("flaked starting",
		clog.Uint64("machine_id", gen.MachineID()),
		clog.Uint64("data_center_id", gen.DataCenterID()),
		clog.String("addr", cfg.HTTP.Addr),
	)
	if err := srv.Run(runCtx); err != nil {
		return err
	}
	if ctx.Err() == nil {
		return xerrors.WithCode(xerrors.Wrap(allocator.ErrLeaseExpired, "stopped serving"), "lease_lost")
	}
	logger.Info("flaked stopped")
	return nil
}
