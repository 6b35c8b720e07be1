package snowflake

import (
	"strconv"
	"time"
)

// Decomposed 拆解后的 ID
type Decomposed struct {
	ID           uint64 `json:"id,string"`
	Time         uint64 `json:"time"`
	Sequence     uint64 `json:"sequence"`
	DataCenterID uint64 `json:"data_center_id"`
	MachineID    uint64 `json:"machine_id"`
}

// Decompose 按给定位宽拆解 ID，位宽之和不为 63 时返回 ErrInvalidBitLength
//
//	d, _ := snowflake.Decompose(id, 41, 12, 5, 5)
//	fmt.Println(d.MachineID, d.Sequence)
func Decompose(id uint64, timeBits, sequenceBits, dataCenterBits, machineBits uint8) (Decomposed, error) {
	layout, err := NewLayout(timeBits, sequenceBits, dataCenterBits, machineBits)
	if err != nil {
		return Decomposed{}, err
	}
	return layout.Unpack(id), nil
}

// Int64 返回 ID 的 int64 形式，生成器产生的 ID 符号位恒为 0
func (d Decomposed) Int64() int64 {
	return int64(d.ID)
}

// String 返回十进制字符串
func (d Decomposed) String() string {
	return strconv.FormatUint(d.ID, 10)
}

// Elapsed 返回自纪元起经过的时长
func (d Decomposed) Elapsed(unit time.Duration) time.Duration {
	return time.Duration(d.Time) * unit
}

// Timestamp 返回 ID 所在时间单位的起始时刻
func (d Decomposed) Timestamp(start time.Time, unit time.Duration) time.Time {
	return start.Add(d.Elapsed(unit))
}
