package allocator

import "github.com/ceyewan/flake/xerrors"

var (
	// ErrInvalidConfig 分配器配置非法
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrInvalidInput, "allocator: invalid config")

	// ErrConnectorNil 所选 driver 未注入对应连接器
	ErrConnectorNil = xerrors.New("allocator: connector is nil")

	// ErrIDExhausted [0, MaxID) 内的 ID 全部被占用
	ErrIDExhausted = xerrors.New("allocator: no id available")

	// ErrLeaseExpired 租约丢失，已分配的 ID 可能被其他实例占用
	ErrLeaseExpired = xerrors.New("allocator: lease expired")

	// ErrNotAllocated 在 Allocate 成功之前调用了 KeepAlive
	ErrNotAllocated = xerrors.New("allocator: id not allocated")

	// ErrNoPrivateIPv4 本机没有处于 up 状态的非回环网卡持有私有 IPv4 地址
	ErrNoPrivateIPv4 = xerrors.New("allocator: no private ipv4 address")
)
