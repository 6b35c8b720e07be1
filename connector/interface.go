// Package connector 管理 flake 依赖的外部连接：Redis 与 Etcd。
//
// 连接器只负责连接的生命周期（Connect / HealthCheck / Close），
// 上层组件（如 allocator）通过 GetClient 取得原生客户端自行操作。
//
//	redisConn, _ := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"},
//	    connector.WithLogger(logger))
//	if err := redisConn.Connect(ctx); err != nil { ... }
//	defer redisConn.Close()
//
//	alloc, _ := allocator.New(&allocator.Config{Driver: "redis"},
//	    allocator.WithRedisConnector(redisConn))
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Connector 连接器通用行为
type Connector interface {
	Connect(ctx context.Context) error
	Close() error
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最近一次 Connect/HealthCheck 缓存的结果
	IsHealthy() bool
	Name() string
}

// TypedConnector 暴露原生客户端的连接器
type TypedConnector[T any] interface {
	Connector
	GetClient() T
}

type RedisConnector interface {
	TypedConnector[*redis.Client]
}

type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}
