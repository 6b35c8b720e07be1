package snowflake

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/flake/allocator"
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

func newTestGenerator(t *testing.T, cfg *Config, clock Clock, opts ...Option) *Snowflake {
	t.Helper()
	if clock != nil {
		opts = append(opts, WithClock(clock))
	}
	gen, err := New(cfg, opts...)
	require.NoError(t, err)
	return gen
}

// ============================================================================
// 构造
// ============================================================================

func TestNew_Defaults_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{MachineID: Uint64(0), DataCenterID: Uint64(0)}, clock)

	l := gen.Layout()
	assert.Equal(t, DefaultBitLenTime, l.TimeBits())
	assert.Equal(t, DefaultBitLenSequence, l.SequenceBits())
	assert.Equal(t, DefaultBitLenDataCenterID, l.DataCenterBits())
	assert.Equal(t, DefaultBitLenMachineID, l.MachineBits())
	assert.Equal(t, epoch, gen.StartTime())
	assert.Equal(t, time.Millisecond, gen.TimeUnit())
	assert.Zero(t, gen.MachineID())
	assert.Zero(t, gen.DataCenterID())
}

func TestNew_MissingIDs_Unit(t *testing.T) {
	clock := newFakeClock(epoch)

	// 未提供任何来源时不会静默取 0
	gen, err := New(nil, WithClock(clock))
	require.Error(t, err)
	assert.Nil(t, gen)
	assert.ErrorIs(t, err, ErrMachineIDFailed)
	assert.Equal(t, CodeMachineIDFailed, xerrors.GetCode(err))

	_, err = New(&Config{MachineID: Uint64(3)}, WithClock(clock))
	assert.ErrorIs(t, err, ErrDataCenterIDFailed)
	assert.Equal(t, CodeDataCenterIDFailed, xerrors.GetCode(err))

	_, err = New(nil, WithClock(clock), WithDataCenterIDFunc(allocator.Static(1)))
	assert.ErrorIs(t, err, ErrMachineIDFailed)

	// 位宽为 0 的字段无需来源
	gen = newTestGenerator(t, &Config{
		BitLenTime: 46, BitLenSequence: 12, BitLenDataCenterID: 0, BitLenMachineID: 5,
		MachineID: Uint64(9),
	}, clock)
	assert.EqualValues(t, 9, gen.MachineID())
	assert.Zero(t, gen.DataCenterID())
}

func TestNew_InvalidConfig_Unit(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
		code    string
	}{
		{
			name:    "bit lengths sum to 62",
			cfg:     &Config{BitLenTime: 41, BitLenSequence: 12, BitLenDataCenterID: 5, BitLenMachineID: 4},
			wantErr: ErrInvalidBitLength,
			code:    CodeInvalidBitLength,
		},
		{
			name:    "bit lengths sum to 64",
			cfg:     &Config{BitLenTime: 42, BitLenSequence: 12, BitLenDataCenterID: 5, BitLenMachineID: 5},
			wantErr: ErrInvalidBitLength,
			code:    CodeInvalidBitLength,
		},
		{
			name:    "negative time unit",
			cfg:     &Config{TimeUnit: -time.Millisecond},
			wantErr: xerrors.ErrInvalidInput,
			code:    CodeInvalidTimeUnit,
		},
		{
			name:    "unknown policy",
			cfg:     &Config{ClockBackward: ClockBackwardConfig{Policy: "panic"}},
			wantErr: ErrInvalidConfig,
			code:    CodeInvalidClockPolicy,
		},
		{
			name:    "negative max wait",
			cfg:     &Config{ClockBackward: ClockBackwardConfig{Policy: PolicyWait, MaxWait: -time.Second}},
			wantErr: ErrInvalidConfig,
			code:    CodeInvalidClockPolicy,
		},
		{
			name:    "start time ahead",
			cfg:     &Config{StartTime: epoch.Add(time.Hour)},
			wantErr: ErrStartTimeAhead,
			code:    CodeStartTimeAhead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen, err := New(tt.cfg, WithClock(newFakeClock(epoch)))
			require.Error(t, err)
			assert.Nil(t, gen)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.code, xerrors.GetCode(err))
		})
	}
}

func TestNew_BitLengthsSumTo63_Unit(t *testing.T) {
	gen := newTestGenerator(t, &Config{
		BitLenTime:      43,
		BitLenSequence:  20,
		BitLenMachineID: 0,
	}, newFakeClock(epoch))
	assert.EqualValues(t, 20, gen.Layout().SequenceBits())
	assert.Zero(t, gen.Layout().MaxMachineID())
}

func TestNew_IDRange_Unit(t *testing.T) {
	clock := newFakeClock(epoch)

	_, err := New(&Config{MachineID: Uint64(32)}, WithClock(clock))
	assert.ErrorIs(t, err, ErrMachineIDOutOfRange)
	assert.Equal(t, CodeMachineIDOutOfRange, xerrors.GetCode(err))

	_, err = New(&Config{MachineID: Uint64(0), DataCenterID: Uint64(32)}, WithClock(clock))
	assert.ErrorIs(t, err, ErrDataCenterIDOutOfRange)
	assert.Equal(t, CodeDataCenterIDOutOfRange, xerrors.GetCode(err))

	gen := newTestGenerator(t, &Config{MachineID: Uint64(31), DataCenterID: Uint64(31)}, clock)
	assert.EqualValues(t, 31, gen.MachineID())
	assert.EqualValues(t, 31, gen.DataCenterID())

	// 位宽为 0 时只接受 0
	_, err = New(&Config{
		BitLenTime: 46, BitLenSequence: 12, BitLenDataCenterID: 0, BitLenMachineID: 5,
		MachineID: Uint64(1), DataCenterID: Uint64(1),
	}, WithClock(clock))
	assert.ErrorIs(t, err, ErrDataCenterIDOutOfRange)
}

func TestNew_IDResolution_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	providerCalled := false
	provider := func() (uint64, error) {
		providerCalled = true
		return 9, nil
	}

	t.Run("explicit wins over provider", func(t *testing.T) {
		providerCalled = false
		gen := newTestGenerator(t, &Config{MachineID: Uint64(3), DataCenterID: Uint64(0)}, clock,
			WithMachineIDFunc(provider))
		assert.EqualValues(t, 3, gen.MachineID())
		assert.False(t, providerCalled)
	})

	t.Run("provider used without explicit id", func(t *testing.T) {
		gen := newTestGenerator(t, nil, clock,
			WithMachineIDFunc(provider),
			WithDataCenterIDFunc(allocator.Static(4)),
		)
		assert.EqualValues(t, 9, gen.MachineID())
		assert.EqualValues(t, 4, gen.DataCenterID())
	})

	t.Run("provider wins over ip fallback", func(t *testing.T) {
		gen := newTestGenerator(t, &Config{IPFallback: true}, clock,
			WithMachineIDFunc(allocator.Static(1)),
			WithDataCenterIDFunc(allocator.Static(2)),
		)
		assert.EqualValues(t, 1, gen.MachineID())
		assert.EqualValues(t, 2, gen.DataCenterID())
	})

	t.Run("provider error", func(t *testing.T) {
		cause := xerrors.New("lease unavailable")
		_, err := New(nil, WithClock(clock), WithMachineIDFunc(func() (uint64, error) { return 0, cause }))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMachineIDFailed)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, CodeMachineIDFailed, xerrors.GetCode(err))

		_, err = New(&Config{MachineID: Uint64(0)}, WithClock(clock),
			WithDataCenterIDFunc(func() (uint64, error) { return 0, cause }))
		assert.ErrorIs(t, err, ErrDataCenterIDFailed)
		assert.Equal(t, CodeDataCenterIDFailed, xerrors.GetCode(err))
	})

	t.Run("provider result range checked", func(t *testing.T) {
		_, err := New(nil, WithClock(clock), WithMachineIDFunc(allocator.Static(100)))
		assert.ErrorIs(t, err, ErrMachineIDOutOfRange)
	})
}

func TestNew_IPFallback_Unit(t *testing.T) {
	// 16 位机器 ID、8 位数据中心 ID 可容纳 IP 回退的任意结果
	cfg := &Config{
		BitLenTime:         27,
		BitLenSequence:     12,
		BitLenDataCenterID: 8,
		BitLenMachineID:    16,
		IPFallback:         true,
	}
	gen, err := New(cfg, WithClock(newFakeClock(epoch)))
	if err != nil {
		// 没有私有 IPv4 的环境
		assert.ErrorIs(t, err, ErrMachineIDFailed)
		assert.ErrorIs(t, err, allocator.ErrNoPrivateIPv4)
		return
	}

	ip, err := allocator.PrivateIPv4()
	require.NoError(t, err)
	assert.Equal(t, uint64(ip[2])<<8|uint64(ip[3]), gen.MachineID())
	assert.Equal(t, uint64(ip[3]), gen.DataCenterID())
}

func TestNew_Checks_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	even := func(id uint64) bool { return id%2 == 0 }

	_, err := New(&Config{MachineID: Uint64(3)}, WithClock(clock), WithMachineIDCheck(even))
	assert.ErrorIs(t, err, ErrCheckMachineIDFailed)
	assert.Equal(t, CodeCheckMachineIDFailed, xerrors.GetCode(err))

	_, err = New(&Config{MachineID: Uint64(0), DataCenterID: Uint64(5)}, WithClock(clock), WithDataCenterIDCheck(even))
	assert.ErrorIs(t, err, ErrCheckDataCenterIDFailed)
	assert.Equal(t, CodeCheckDataCenterIDFailed, xerrors.GetCode(err))

	// 校验作用于解析后的值
	var checked uint64
	gen := newTestGenerator(t, &Config{DataCenterID: Uint64(0)}, clock,
		WithMachineIDFunc(allocator.Static(6)),
		WithMachineIDCheck(func(id uint64) bool { checked = id; return true }),
	)
	assert.EqualValues(t, 6, checked)
	assert.EqualValues(t, 6, gen.MachineID())
}

// ============================================================================
// 发号
// ============================================================================

func TestNextID_Layout_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{
		StartTime:    epoch,
		MachineID:    Uint64(15),
		DataCenterID: Uint64(7),
	}, clock)

	clock.Advance(5 * time.Millisecond)
	id, err := gen.NextID()
	require.NoError(t, err)

	d := gen.Decompose(id)
	assert.Equal(t, Decomposed{ID: id, Time: 5, Sequence: 0, DataCenterID: 7, MachineID: 15}, d)
	assert.Equal(t, uint64(5)<<22|uint64(7)<<17|uint64(15)<<12, id)
	assert.Equal(t, epoch.Add(5*time.Millisecond), gen.Timestamp(id))

	// 同一时间单位内序列号递增
	id2, err := gen.NextID()
	require.NoError(t, err)
	d2 := gen.Decompose(id2)
	assert.EqualValues(t, 5, d2.Time)
	assert.EqualValues(t, 1, d2.Sequence)

	// 进入新时间单位后序列号归零
	clock.Advance(time.Millisecond)
	id3, err := gen.NextID()
	require.NoError(t, err)
	d3 := gen.Decompose(id3)
	assert.EqualValues(t, 6, d3.Time)
	assert.Zero(t, d3.Sequence)
}

func TestNextID_LayoutsRoundTrip_Unit(t *testing.T) {
	tests := []struct {
		name         string
		time, seq    uint8
		dc, machine  uint8
		dataCenterID uint64
		machineID    uint64
	}{
		{name: "43/20/0/0", time: 43, seq: 20},
		{name: "27/12/8/16", time: 27, seq: 12, dc: 8, machine: 16, dataCenterID: 200, machineID: 40000},
		{name: "53/0/5/5", time: 53, seq: 0, dc: 5, machine: 5, dataCenterID: 9, machineID: 17},
		{name: "41/12/5/5", time: 41, seq: 12, dc: 5, machine: 5, dataCenterID: 1, machineID: 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock(epoch)
			gen := newTestGenerator(t, &Config{
				StartTime:          epoch,
				BitLenTime:         tt.time,
				BitLenSequence:     tt.seq,
				BitLenDataCenterID: tt.dc,
				BitLenMachineID:    tt.machine,
				MachineID:          Uint64(tt.machineID),
				DataCenterID:       Uint64(tt.dataCenterID),
			}, clock)

			// 序列号位宽为 0 时每个时间单位只能发一个 ID
			perUnit := min(gen.Layout().MaxSequence(), 1)

			var prev uint64
			for unit := uint64(1); unit <= 3; unit++ {
				clock.Advance(time.Millisecond)
				for seq := uint64(0); seq <= perUnit; seq++ {
					id, err := gen.NextID()
					require.NoError(t, err)
					require.Greater(t, id, prev)
					prev = id

					d, err := Decompose(id, tt.time, tt.seq, tt.dc, tt.machine)
					require.NoError(t, err)
					assert.Equal(t, Decomposed{
						ID:           id,
						Time:         unit,
						Sequence:     seq,
						DataCenterID: tt.dataCenterID,
						MachineID:    tt.machineID,
					}, d)
					assert.Equal(t, d, gen.Decompose(id))
					assert.Equal(t, epoch.Add(time.Duration(unit)*time.Millisecond), gen.Timestamp(id))
				}
			}
		})
	}
}

func TestNextID_TimeUnit_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{
		StartTime:       epoch,
		TimeUnit:        10 * time.Millisecond,
		BitLenTime:      39,
		BitLenSequence:  8,
		BitLenMachineID: 16,
		MachineID:       Uint64(300),
	}, clock)

	clock.Advance(35 * time.Millisecond)
	id, err := gen.NextID()
	require.NoError(t, err)
	d := gen.Decompose(id)
	assert.EqualValues(t, 3, d.Time)
	assert.Equal(t, 30*time.Millisecond, d.Elapsed(gen.TimeUnit()))
	assert.Equal(t, epoch.Add(30*time.Millisecond), gen.Timestamp(id))
}

func TestNextID_SequenceExhausted_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{
		StartTime:          epoch,
		BitLenTime:         51,
		BitLenSequence:     2,
		BitLenDataCenterID: 5,
		BitLenMachineID:    5,
		MachineID:          Uint64(1),
		DataCenterID:       Uint64(1),
	}, clock)

	clock.Advance(time.Millisecond)
	for want := uint64(0); want < 4; want++ {
		id, err := gen.NextID()
		require.NoError(t, err)
		d := gen.Decompose(id)
		assert.EqualValues(t, 1, d.Time)
		assert.Equal(t, want, d.Sequence)
	}

	// 第 5 次调用阻塞到下一个时间单位
	result := make(chan uint64, 1)
	go func() {
		id, err := gen.NextID()
		if err == nil {
			result <- id
		}
		close(result)
	}()

	select {
	case <-result:
		t.Fatal("NextID returned before the time unit advanced")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(time.Millisecond)
	select {
	case id, ok := <-result:
		require.True(t, ok, "NextID failed after the time unit advanced")
		d := gen.Decompose(id)
		assert.EqualValues(t, 2, d.Time)
		assert.Zero(t, d.Sequence)
	case <-time.After(5 * time.Second):
		t.Fatal("NextID did not return after the time unit advanced")
	}
}

func TestNextID_ClockBackwardsError_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{StartTime: epoch, MachineID: Uint64(1), DataCenterID: Uint64(1)}, clock)

	clock.Advance(10 * time.Millisecond)
	first, err := gen.NextID()
	require.NoError(t, err)

	clock.Advance(-3 * time.Millisecond)
	_, err = gen.NextID()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClockMovedBackwards)
	assert.Equal(t, CodeClockMovedBackwards, xerrors.GetCode(err))

	// 时钟恢复后继续发号，且大于回拨前的 ID
	clock.Advance(4 * time.Millisecond)
	next, err := gen.NextID()
	require.NoError(t, err)
	assert.Greater(t, next, first)
}

func TestNextID_ClockBackwardsWait_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{
		StartTime:     epoch,
		MachineID:     Uint64(1),
		DataCenterID:  Uint64(1),
		ClockBackward: ClockBackwardConfig{Policy: PolicyWait, MaxWait: 5 * time.Second},
	}, clock)

	clock.Advance(10 * time.Millisecond)
	first, err := gen.NextID()
	require.NoError(t, err)
	clock.Advance(-2 * time.Millisecond)

	type result struct {
		id  uint64
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := gen.NextID()
		done <- result{id, err}
	}()

	time.Sleep(20 * time.Millisecond)
	clock.Advance(3 * time.Millisecond)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Greater(t, r.id, first)
		assert.EqualValues(t, 11, gen.Decompose(r.id).Time)
	case <-time.After(5 * time.Second):
		t.Fatal("NextID did not return after the clock caught up")
	}
}

func TestNextID_ClockBackwardsWaitTimeout_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{
		StartTime:     epoch,
		MachineID:     Uint64(1),
		DataCenterID:  Uint64(1),
		ClockBackward: ClockBackwardConfig{Policy: PolicyWait, MaxWait: 20 * time.Millisecond},
	}, clock)

	clock.Advance(10 * time.Millisecond)
	_, err := gen.NextID()
	require.NoError(t, err)

	t.Run("clock never catches up", func(t *testing.T) {
		clock.Advance(-5 * time.Millisecond)
		start := time.Now()
		_, err := gen.NextID()
		assert.ErrorIs(t, err, ErrClockMovedBackwards)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
		clock.Advance(5 * time.Millisecond)
	})

	t.Run("drift larger than max wait fails fast", func(t *testing.T) {
		clock.Advance(-time.Second)
		start := time.Now()
		_, err := gen.NextID()
		assert.ErrorIs(t, err, ErrClockMovedBackwards)
		assert.Less(t, time.Since(start), time.Second)
		clock.Advance(time.Second)
	})
}

func TestNextID_OverTimeLimit_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{
		StartTime:          epoch,
		BitLenTime:         10,
		BitLenSequence:     43,
		BitLenDataCenterID: 5,
		BitLenMachineID:    5,
		MachineID:          Uint64(1),
		DataCenterID:       Uint64(1),
	}, clock)

	clock.Advance(1023 * time.Millisecond)
	id, err := gen.NextID()
	require.NoError(t, err)
	assert.EqualValues(t, 1023, gen.Decompose(id).Time)

	clock.Advance(time.Millisecond)
	_, err = gen.NextID()
	assert.ErrorIs(t, err, ErrOverTimeLimit)
	assert.Equal(t, CodeOverTimeLimit, xerrors.GetCode(err))
}

func TestNextID_StartTimeAhead_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{StartTime: epoch, MachineID: Uint64(1), DataCenterID: Uint64(1)}, clock)

	clock.Advance(-time.Second)
	_, err := gen.NextID()
	assert.ErrorIs(t, err, ErrStartTimeAhead)
	assert.Equal(t, CodeStartTimeAhead, xerrors.GetCode(err))

	assert.Equal(t, int64(-1), gen.Next())
	assert.Empty(t, gen.String())
	_, err = gen.Int64()
	assert.Error(t, err)
}

func TestNextID_Forms_Unit(t *testing.T) {
	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{StartTime: epoch, MachineID: Uint64(1), DataCenterID: Uint64(1)}, clock)
	clock.Advance(time.Millisecond)

	v, err := gen.Int64()
	require.NoError(t, err)
	assert.Positive(t, v)

	n := gen.Next()
	assert.Greater(t, n, v)

	s := gen.String()
	parsed, err := strconv.ParseUint(s, 10, 64)
	require.NoError(t, err)
	assert.Greater(t, parsed, uint64(n))
	assert.EqualValues(t, 2, gen.Decompose(parsed).Sequence)
}

func TestNextID_Monotonic_Unit(t *testing.T) {
	gen := newTestGenerator(t, &Config{MachineID: Uint64(1), DataCenterID: Uint64(1)}, nil)

	var prev uint64
	for i := 0; i < 100000; i++ {
		id, err := gen.NextID()
		require.NoError(t, err)
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestNextID_Concurrent_Unit(t *testing.T) {
	gen := newTestGenerator(t, &Config{MachineID: Uint64(2), DataCenterID: Uint64(3)}, nil)

	const (
		workers = 16
		perG    = 10000
	)
	results := make([][]uint64, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids := make([]uint64, 0, perG)
			for i := 0; i < perG; i++ {
				id, err := gen.NextID()
				if err != nil {
					t.Errorf("NextID: %v", err)
					return
				}
				ids = append(ids, id)
			}
			results[w] = ids
		}(w)
	}
	wg.Wait()

	all := make([]uint64, 0, workers*perG)
	for w, ids := range results {
		require.Len(t, ids, perG)
		for i := 1; i < len(ids); i++ {
			require.Greater(t, ids[i], ids[i-1], "worker %d not strictly increasing", w)
		}
		all = append(all, ids...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	for i := 1; i < len(all); i++ {
		require.NotEqual(t, all[i-1], all[i], "duplicate id %d", all[i])
	}

	for _, id := range all[:100] {
		d := gen.Decompose(id)
		assert.EqualValues(t, 2, d.MachineID)
		assert.EqualValues(t, 3, d.DataCenterID)
	}
}

func TestNextID_ZeroAllocs_Unit(t *testing.T) {
	gen := newTestGenerator(t, &Config{MachineID: Uint64(1), DataCenterID: Uint64(1)}, nil)
	allocs := testing.AllocsPerRun(1000, func() {
		_, _ = gen.NextID()
	})
	assert.Zero(t, allocs)
}

// ============================================================================
// 拆解
// ============================================================================

func TestDecompose_Unit(t *testing.T) {
	id := uint64(5)<<22 | uint64(7)<<17 | uint64(15)<<12 | 42

	d, err := Decompose(id, 41, 12, 5, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 5, d.Time)
	assert.EqualValues(t, 42, d.Sequence)
	assert.EqualValues(t, 7, d.DataCenterID)
	assert.EqualValues(t, 15, d.MachineID)
	assert.Equal(t, int64(id), d.Int64())
	assert.Equal(t, strconv.FormatUint(id, 10), d.String())

	_, err = Decompose(id, 41, 12, 5, 6)
	assert.ErrorIs(t, err, ErrInvalidBitLength)
}

// ============================================================================
// 可观测性
// ============================================================================

func TestGenerator_Metrics_Unit(t *testing.T) {
	meter, err := metrics.New(&metrics.Config{Enabled: true, ServiceName: "flake-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{StartTime: epoch, MachineID: Uint64(1), DataCenterID: Uint64(1)}, clock, WithMeter(meter))

	clock.Advance(2 * time.Millisecond)
	for i := 0; i < 3; i++ {
		_, err := gen.NextID()
		require.NoError(t, err)
	}
	clock.Advance(-time.Millisecond)
	_, err = gen.NextID()
	require.Error(t, err)

	rec := httptest.NewRecorder()
	meter.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	out := string(body)
	assert.Contains(t, out, MetricIDsGenerated)
	assert.Contains(t, out, MetricClockBackwards)
	assert.Contains(t, out, MetricGenerateErrors)
	assert.Contains(t, out, `code="`+CodeClockMovedBackwards+`"`)
}

func TestGenerator_Logs_Unit(t *testing.T) {
	var buf bytes.Buffer
	logger, err := clog.New(&clog.Config{Level: "debug", Format: "json"}, clog.WithWriter(&buf))
	require.NoError(t, err)

	clock := newFakeClock(epoch)
	gen := newTestGenerator(t, &Config{StartTime: epoch, MachineID: Uint64(4), DataCenterID: Uint64(0)}, clock, WithLogger(logger))
	assert.Contains(t, buf.String(), "snowflake generator created")
	assert.Contains(t, buf.String(), `"namespace":"snowflake"`)
	assert.Contains(t, buf.String(), `"machine_id":4`)

	clock.Advance(time.Millisecond)
	_, err = gen.NextID()
	require.NoError(t, err)
	clock.Advance(-time.Millisecond)
	_, _ = gen.NextID()
	assert.Contains(t, buf.String(), "clock moved backwards")
}

// ============================================================================
// 基准
// ============================================================================

var benchConfig = &Config{MachineID: Uint64(1), DataCenterID: Uint64(1)}

func BenchmarkNextID(b *testing.B) {
	gen, err := New(benchConfig)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = gen.NextID()
	}
}

func BenchmarkNextIDParallel(b *testing.B) {
	gen, err := New(benchConfig)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = gen.NextID()
		}
	})
}

func BenchmarkNextIDWithMetrics(b *testing.B) {
	gen, err := New(benchConfig, WithMeter(metrics.Must(&metrics.Config{Enabled: true})))
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = gen.NextID()
		}
	})
}
