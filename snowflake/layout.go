package snowflake

import "github.com/ceyewan/flake/xerrors"

// totalBits 符号位之下可用的位数
const totalBits = 63

// Layout ID 的位布局，自高位到低位依次为：
//
//	| 1 bit 符号位(恒 0) | time | data center id | machine id | sequence |
//
// 只能通过 NewLayout 创建；零值不可用。
type Layout struct {
	timeBits       uint8
	sequenceBits   uint8
	dataCenterBits uint8
	machineBits    uint8

	timeShift       uint8
	dataCenterShift uint8
	machineShift    uint8

	maxTime       uint64
	maxSequence   uint64
	maxDataCenter uint64
	maxMachine    uint64
}

// NewLayout 根据各字段位宽计算位移与掩码，四个位宽之和必须恰好为 63
//
// 位宽为 0 是合法的，对应字段只能取 0：
//
//	layout, err := snowflake.NewLayout(41, 12, 5, 5) // 经典布局
//	layout, err := snowflake.NewLayout(43, 20, 0, 0) // 单机高吞吐
func NewLayout(timeBits, sequenceBits, dataCenterBits, machineBits uint8) (Layout, error) {
	sum := int(timeBits) + int(sequenceBits) + int(dataCenterBits) + int(machineBits)
	if sum != totalBits {
		return Layout{}, xerrors.WithCode(
			xerrors.Wrapf(ErrInvalidBitLength, "time=%d sequence=%d data_center=%d machine=%d sum to %d, want %d",
				timeBits, sequenceBits, dataCenterBits, machineBits, sum, totalBits),
			CodeInvalidBitLength,
		)
	}

	return Layout{
		timeBits:       timeBits,
		sequenceBits:   sequenceBits,
		dataCenterBits: dataCenterBits,
		machineBits:    machineBits,

		timeShift:       dataCenterBits + machineBits + sequenceBits,
		dataCenterShift: machineBits + sequenceBits,
		machineShift:    sequenceBits,

		maxTime:       mask(timeBits),
		maxSequence:   mask(sequenceBits),
		maxDataCenter: mask(dataCenterBits),
		maxMachine:    mask(machineBits),
	}, nil
}

func mask(bits uint8) uint64 {
	return (uint64(1) << bits) - 1
}

// Pack 将各字段组装为 ID，超出位宽的高位被截断
func (l Layout) Pack(elapsed, dataCenterID, machineID, sequence uint64) uint64 {
	return (elapsed&l.maxTime)<<l.timeShift |
		(dataCenterID&l.maxDataCenter)<<l.dataCenterShift |
		(machineID&l.maxMachine)<<l.machineShift |
		sequence&l.maxSequence
}

// Unpack 拆解 ID，任意 uint64 都可以被拆解，最高位被忽略
func (l Layout) Unpack(id uint64) Decomposed {
	return Decomposed{
		ID:           id,
		Time:         (id >> l.timeShift) & l.maxTime,
		DataCenterID: (id >> l.dataCenterShift) & l.maxDataCenter,
		MachineID:    (id >> l.machineShift) & l.maxMachine,
		Sequence:     id & l.maxSequence,
	}
}

func (l Layout) TimeBits() uint8       { return l.timeBits }
func (l Layout) SequenceBits() uint8   { return l.sequenceBits }
func (l Layout) DataCenterBits() uint8 { return l.dataCenterBits }
func (l Layout) MachineBits() uint8    { return l.machineBits }

func (l Layout) TimeShift() uint8       { return l.timeShift }
func (l Layout) DataCenterShift() uint8 { return l.dataCenterShift }
func (l Layout) MachineShift() uint8    { return l.machineShift }

// MaxTime 可表示的最大时间单位数
func (l Layout) MaxTime() uint64         { return l.maxTime }
func (l Layout) MaxSequence() uint64     { return l.maxSequence }
func (l Layout) MaxDataCenterID() uint64 { return l.maxDataCenter }
func (l Layout) MaxMachineID() uint64    { return l.maxMachine }
