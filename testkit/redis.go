package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/flake/connector"
)

// GetRedisConfig 返回 Redis 测试配置，使用 DB 1 避免与默认库冲突
func GetRedisConfig() *connector.RedisConfig {
	return &connector.RedisConfig{
		Name:        "test-redis",
		Addr:        envOr("FLAKE_TEST_REDIS_ADDR", "127.0.0.1:6379"),
		DB:          1,
		DialTimeout: time.Second,
	}
}

// GetRedisConnector 返回已连接的 Redis 连接器，不可达时 Skip
func GetRedisConnector(t *testing.T) connector.RedisConnector {
	t.Helper()
	conn, err := connector.NewRedis(GetRedisConfig(), connector.WithLogger(NewLogger()))
	if err != nil {
		t.Fatalf("create redis connector: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close()
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// GetRedisClient 返回原生 Redis 客户端
func GetRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	return GetRedisConnector(t).GetClient()
}
