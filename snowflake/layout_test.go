package snowflake

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/flake/xerrors"
)

func TestNewLayout_Unit(t *testing.T) {
	tests := []struct {
		name                string
		time, seq, dc, mach uint8
		wantErr             bool
		timeShift, dcShift  uint8
		machShift           uint8
	}{
		{name: "classic", time: 41, seq: 12, dc: 5, mach: 5, timeShift: 22, dcShift: 17, machShift: 12},
		{name: "no data center", time: 41, seq: 12, dc: 0, mach: 10, timeShift: 22, dcShift: 22, machShift: 12},
		{name: "time only", time: 63, timeShift: 0, dcShift: 0, machShift: 0},
		{name: "sum 62", time: 41, seq: 12, dc: 5, mach: 4, wantErr: true},
		{name: "sum 64", time: 41, seq: 12, dc: 5, mach: 6, wantErr: true},
		{name: "overflowing uint8 sum", time: 255, seq: 255, dc: 255, mach: 255, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLayout(tt.time, tt.seq, tt.dc, tt.mach)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidBitLength)
				assert.Equal(t, CodeInvalidBitLength, xerrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.timeShift, l.TimeShift())
			assert.Equal(t, tt.dcShift, l.DataCenterShift())
			assert.Equal(t, tt.machShift, l.MachineShift())
			assert.Equal(t, uint64(1)<<tt.time-1, l.MaxTime())
			assert.Equal(t, uint64(1)<<tt.seq-1, l.MaxSequence())
			assert.Equal(t, uint64(1)<<tt.dc-1, l.MaxDataCenterID())
			assert.Equal(t, uint64(1)<<tt.mach-1, l.MaxMachineID())
		})
	}
}

func TestLayout_PackUnpack_Unit(t *testing.T) {
	l, err := NewLayout(41, 12, 5, 5)
	require.NoError(t, err)

	id := l.Pack(5, 7, 15, 3)
	assert.Equal(t, uint64(5)<<22|uint64(7)<<17|uint64(15)<<12|3, id)

	d := l.Unpack(id)
	assert.Equal(t, Decomposed{ID: id, Time: 5, DataCenterID: 7, MachineID: 15, Sequence: 3}, d)

	maxID := l.Pack(l.MaxTime(), l.MaxDataCenterID(), l.MaxMachineID(), l.MaxSequence())
	assert.Equal(t, uint64(math.MaxInt64), maxID)
	assert.Zero(t, maxID>>63, "sign bit must stay zero")

	// 任意值都可以拆解，符号位被忽略
	all := l.Unpack(math.MaxUint64)
	assert.Equal(t, l.MaxTime(), all.Time)
	assert.Equal(t, l.MaxSequence(), all.Sequence)
}

func TestLayout_ZeroWidth_Unit(t *testing.T) {
	l, err := NewLayout(46, 12, 0, 5)
	require.NoError(t, err)
	assert.Zero(t, l.MaxDataCenterID())

	id := l.Pack(9, 1, 3, 2)
	d := l.Unpack(id)
	assert.Zero(t, d.DataCenterID, "zero-width field only holds 0")
	assert.EqualValues(t, 3, d.MachineID)
	assert.EqualValues(t, 9, d.Time)
	assert.EqualValues(t, 2, d.Sequence)
}
