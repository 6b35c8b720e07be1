package testkit

import (
	"context"
	"strings"
	"testing"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/flake/connector"
)

// GetEtcdConfig 返回 Etcd 测试配置
func GetEtcdConfig() *connector.EtcdConfig {
	return &connector.EtcdConfig{
		Name:        "test-etcd",
		Endpoints:   strings.Split(envOr("FLAKE_TEST_ETCD_ENDPOINTS", "127.0.0.1:2379"), ","),
		DialTimeout: time.Second,
	}
}

// GetEtcdConnector 返回已连接的 Etcd 连接器，不可达时 Skip
func GetEtcdConnector(t *testing.T) connector.EtcdConnector {
	t.Helper()
	conn, err := connector.NewEtcd(GetEtcdConfig(), connector.WithLogger(NewLogger()))
	if err != nil {
		t.Skipf("etcd unavailable: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close()
		t.Skipf("etcd unavailable: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// GetEtcdClient 返回原生 Etcd 客户端
func GetEtcdClient(t *testing.T) *clientv3.Client {
	t.Helper()
	return GetEtcdConnector(t).GetClient()
}
