package snowflake

import "github.com/ceyewan/flake/xerrors"

// 错误码，通过 xerrors.GetCode 获取
const (
	CodeInvalidBitLength        = "invalid_bit_length"
	CodeMachineIDOutOfRange     = "machine_id_out_of_range"
	CodeDataCenterIDOutOfRange  = "data_center_id_out_of_range"
	CodeMachineIDFailed         = "machine_id_failed"
	CodeDataCenterIDFailed      = "data_center_id_failed"
	CodeCheckMachineIDFailed    = "check_machine_id_failed"
	CodeCheckDataCenterIDFailed = "check_data_center_id_failed"
	CodeStartTimeAhead          = "start_time_ahead"
	CodeClockMovedBackwards     = "clock_moved_backwards"
	CodeOverTimeLimit           = "over_time_limit"
	CodeInvalidTimeUnit         = "invalid_time_unit"
	CodeInvalidClockPolicy      = "invalid_clock_policy"
)

var (
	// ErrInvalidBitLength 四个位宽之和不等于 63
	ErrInvalidBitLength = xerrors.New("snowflake: bit lengths must sum to 63")

	// ErrMachineIDOutOfRange 机器 ID 超出其位宽
	ErrMachineIDOutOfRange = xerrors.New("snowflake: machine id out of range")

	// ErrDataCenterIDOutOfRange 数据中心 ID 超出其位宽
	ErrDataCenterIDOutOfRange = xerrors.New("snowflake: data center id out of range")

	// ErrMachineIDFailed 机器 ID 解析失败或未提供任何来源
	ErrMachineIDFailed = xerrors.New("snowflake: resolve machine id failed")

	// ErrDataCenterIDFailed 数据中心 ID 解析失败或未提供任何来源
	ErrDataCenterIDFailed = xerrors.New("snowflake: resolve data center id failed")

	// ErrCheckMachineIDFailed 机器 ID 未通过校验函数
	ErrCheckMachineIDFailed = xerrors.New("snowflake: machine id rejected by check")

	// ErrCheckDataCenterIDFailed 数据中心 ID 未通过校验函数
	ErrCheckDataCenterIDFailed = xerrors.New("snowflake: data center id rejected by check")

	// ErrStartTimeAhead 起始时间晚于当前时间
	ErrStartTimeAhead = xerrors.New("snowflake: start time is ahead of current time")

	// ErrClockMovedBackwards 当前时间单位早于上一次发号的时间单位
	ErrClockMovedBackwards = xerrors.New("snowflake: clock moved backwards")

	// ErrOverTimeLimit 经过的时间单位超出 time 字段位宽
	ErrOverTimeLimit = xerrors.New("snowflake: over the time limit")

	// ErrInvalidConfig 时间单位或时钟回拨策略非法
	ErrInvalidConfig = xerrors.Wrap(xerrors.ErrInvalidInput, "snowflake: invalid config")
)
