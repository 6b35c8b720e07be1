package allocator

import (
	"net"

	"github.com/ceyewan/flake/xerrors"
)

// interfaceAddrs 返回所有处于 up 状态的非回环网卡地址
var interfaceAddrs = func() ([]net.Addr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var addrs []net.Addr
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		ifAddrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		addrs = append(addrs, ifAddrs...)
	}
	return addrs, nil
}

// PrivateIPv4 返回本机第一个私有 IPv4 地址（10/8、172.16/12、192.168/16）
func PrivateIPv4() (net.IP, error) {
	addrs, err := interfaceAddrs()
	if err != nil {
		return nil, xerrors.Join(ErrNoPrivateIPv4, err)
	}
	if ip := firstPrivateIPv4(addrs); ip != nil {
		return ip, nil
	}
	return nil, ErrNoPrivateIPv4
}

func firstPrivateIPv4(addrs []net.Addr) net.IP {
	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip4 := ip.To4(); ip4 != nil && ip4.IsPrivate() {
			return ip4
		}
	}
	return nil
}

// Lower16BitPrivateIP 取私有 IPv4 的低 16 位作为机器 ID，例如 10.0.3.15 → 783
func Lower16BitPrivateIP() (uint64, error) {
	ip, err := PrivateIPv4()
	if err != nil {
		return 0, err
	}
	return uint64(ip[2])<<8 | uint64(ip[3]), nil
}

// Lower8BitPrivateIP 取私有 IPv4 的最后一段作为数据中心 ID
func Lower8BitPrivateIP() (uint64, error) {
	ip, err := PrivateIPv4()
	if err != nil {
		return 0, err
	}
	return uint64(ip[3]), nil
}

var (
	_ Provider = Lower16BitPrivateIP
	_ Provider = Lower8BitPrivateIP
)
