package snowflake

import (
	"time"

	"github.com/ceyewan/flake/xerrors"
)

// 时钟回拨策略
const (
	// PolicyError 立即返回 ErrClockMovedBackwards
	PolicyError = "error"
	// PolicyWait 忙等直到时钟追上上一次发号的时间单位，最长 MaxWait
	PolicyWait = "wait"
)

const (
	DefaultBitLenTime         uint8 = 41
	DefaultBitLenSequence     uint8 = 12
	DefaultBitLenDataCenterID uint8 = 5
	DefaultBitLenMachineID    uint8 = 5

	DefaultTimeUnit = time.Millisecond
	DefaultMaxWait  = time.Second
)

// Config 生成器配置，New 之后不可修改
//
// YAML 示例：
//
//	snowflake:
//	  start_time: "2024-01-01T00:00:00Z"
//	  time_unit: 1ms
//	  bit_len_time: 41
//	  bit_len_sequence: 12
//	  bit_len_data_center_id: 5
//	  bit_len_machine_id: 5
//	  machine_id: 15
//	  data_center_id: 7
//	  clock_backward:
//	    policy: wait
//	    max_wait: 500ms
type Config struct {
	// StartTime 纪元起点，零值时取生成器创建时刻；不得晚于当前时间
	StartTime time.Time `mapstructure:"start_time"`

	// TimeUnit 时间字段的粒度，默认 1ms
	TimeUnit time.Duration `mapstructure:"time_unit"`

	// 四个位宽之和必须为 63；全部为 0 时使用 41/12/5/5
	BitLenTime         uint8 `mapstructure:"bit_len_time"`
	BitLenSequence     uint8 `mapstructure:"bit_len_sequence"`
	BitLenDataCenterID uint8 `mapstructure:"bit_len_data_center_id"`
	BitLenMachineID    uint8 `mapstructure:"bit_len_machine_id"`

	// MachineID 显式指定时优先于 WithMachineIDFunc 与 IP 回退
	MachineID *uint64 `mapstructure:"machine_id"`

	// DataCenterID 显式指定时优先于 WithDataCenterIDFunc 与 IP 回退
	DataCenterID *uint64 `mapstructure:"data_center_id"`

	// IPFallback 未指定 ID 且无解析函数时，使用私有 IPv4 的低位
	// （机器 ID 取低 16 位，数据中心 ID 取低 8 位）
	IPFallback bool `mapstructure:"ip_fallback"`

	ClockBackward ClockBackwardConfig `mapstructure:"clock_backward"`
}

// ClockBackwardConfig 时钟回拨处理
type ClockBackwardConfig struct {
	// Policy "error"（默认）或 "wait"
	Policy string `mapstructure:"policy"`

	// MaxWait wait 策略下的最长等待时间，默认 1s
	MaxWait time.Duration `mapstructure:"max_wait"`
}

// Uint64 返回 v 的指针，便于填写 Config.MachineID / DataCenterID
func Uint64(v uint64) *uint64 {
	return &v
}

func (c *Config) setDefaults(now time.Time) {
	if c.StartTime.IsZero() {
		c.StartTime = now
	}
	if c.TimeUnit == 0 {
		c.TimeUnit = DefaultTimeUnit
	}
	if c.BitLenTime == 0 && c.BitLenSequence == 0 && c.BitLenDataCenterID == 0 && c.BitLenMachineID == 0 {
		c.BitLenTime = DefaultBitLenTime
		c.BitLenSequence = DefaultBitLenSequence
		c.BitLenDataCenterID = DefaultBitLenDataCenterID
		c.BitLenMachineID = DefaultBitLenMachineID
	}
	if c.ClockBackward.Policy == "" {
		c.ClockBackward.Policy = PolicyError
	}
	if c.ClockBackward.MaxWait == 0 {
		c.ClockBackward.MaxWait = DefaultMaxWait
	}
}

func (c *Config) validate() error {
	if c.TimeUnit < 0 {
		return xerrors.WithCode(xerrors.Wrapf(ErrInvalidConfig, "time unit %v", c.TimeUnit), CodeInvalidTimeUnit)
	}
	switch c.ClockBackward.Policy {
	case PolicyError, PolicyWait:
	default:
		return xerrors.WithCode(
			xerrors.Wrapf(ErrInvalidConfig, "clock backward policy %q", c.ClockBackward.Policy),
			CodeInvalidClockPolicy,
		)
	}
	if c.ClockBackward.MaxWait < 0 {
		return xerrors.WithCode(
			xerrors.Wrapf(ErrInvalidConfig, "clock backward max wait %v", c.ClockBackward.MaxWait),
			CodeInvalidClockPolicy,
		)
	}
	return nil
}
