// Package snowflake 提供无锁的 Snowflake 风格 64 位 ID 生成器。
//
// ID 布局（默认 41/12/5/5）：
//
//	| 1 bit 0 | 41 bit time | 5 bit data center | 5 bit machine | 12 bit sequence |
//
// 特性：
//   - 发号路径无互斥锁，状态保存在单个 atomic.Uint64 中，通过 CAS 推进
//   - 单实例内 ID 单调不减，同一 goroutine 内严格递增
//   - 位宽、时间粒度、纪元起点可配置
//   - 机器 ID / 数据中心 ID 支持显式配置、解析函数（含 Redis / Etcd 租约）与私有 IP 回退，
//     均未提供时 New 返回错误而不是静默取 0
//   - 时钟回拨可选择立即报错或有界等待
//
// 基本使用：
//
//	gen, err := snowflake.New(&snowflake.Config{
//	    MachineID:    snowflake.Uint64(15),
//	    DataCenterID: snowflake.Uint64(7),
//	}, snowflake.WithLogger(logger))
//
//	id, err := gen.NextID()
//	d := gen.Decompose(id) // d.MachineID == 15
//
// *Snowflake 可以被任意多个 goroutine 共享；不要按值复制 Snowflake。
package snowflake

import (
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ceyewan/flake/allocator"
	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/xerrors"
)

// Generator 发号接口，供 server 等使用方依赖
type Generator interface {
	NextID() (uint64, error)
	Int64() (int64, error)
	String() string
}

// Snowflake 无锁 ID 生成器
type Snowflake struct {
	// state 打包 (elapsed_units << sequenceBits) | sequence
	state atomic.Uint64

	layout       Layout
	startTime    time.Time
	timeUnit     time.Duration
	machineID    uint64
	dataCenterID uint64
	policy       string
	maxWait      time.Duration

	clock   Clock
	logger  clog.Logger
	metrics *generatorMetrics
}

var _ Generator = (*Snowflake)(nil)

// New 创建生成器，cfg 为 nil 时布局、纪元与时钟回拨策略取默认值
//
// 标识解析顺序（机器 ID 与数据中心 ID 各自独立）：
//
//	Config.MachineID > WithMachineIDFunc > 私有 IP 回退（Config.IPFallback）
//
// 三者都未提供时返回 ErrMachineIDFailed / ErrDataCenterIDFailed，
// 需要 0 时请显式写 snowflake.Uint64(0)；位宽为 0 的字段固定为 0。
// 解析后依次执行校验函数与位宽范围检查。
func New(cfg *Config, opts ...Option) (*Snowflake, error) {
	o := &options{
		logger: clog.Discard(),
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(o)
	}

	var c Config
	if cfg != nil {
		c = *cfg
	}
	now := o.clock.Now()
	c.setDefaults(now)
	if err := c.validate(); err != nil {
		return nil, err
	}

	layout, err := NewLayout(c.BitLenTime, c.BitLenSequence, c.BitLenDataCenterID, c.BitLenMachineID)
	if err != nil {
		return nil, err
	}

	if c.StartTime.After(now) {
		return nil, xerrors.WithCode(
			xerrors.Wrapf(ErrStartTimeAhead, "start time %s, now %s",
				c.StartTime.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano)),
			CodeStartTimeAhead,
		)
	}

	machineID, err := resolveID(idRule{
		explicit:   c.MachineID,
		provider:   o.machineIDFunc,
		fallback:   allocator.Lower16BitPrivateIP,
		ipFallback: c.IPFallback,
		check:      o.machineIDCheck,
		max:        layout.MaxMachineID(),
		errFailed:  ErrMachineIDFailed,
		codeFailed: CodeMachineIDFailed,
		errCheck:   ErrCheckMachineIDFailed,
		codeCheck:  CodeCheckMachineIDFailed,
		errRange:   ErrMachineIDOutOfRange,
		codeRange:  CodeMachineIDOutOfRange,
	})
	if err != nil {
		return nil, err
	}

	dataCenterID, err := resolveID(idRule{
		explicit:   c.DataCenterID,
		provider:   o.dataCenterIDFunc,
		fallback:   allocator.Lower8BitPrivateIP,
		ipFallback: c.IPFallback,
		check:      o.dataCenterCheck,
		max:        layout.MaxDataCenterID(),
		errFailed:  ErrDataCenterIDFailed,
		codeFailed: CodeDataCenterIDFailed,
		errCheck:   ErrCheckDataCenterIDFailed,
		codeCheck:  CodeCheckDataCenterIDFailed,
		errRange:   ErrDataCenterIDOutOfRange,
		codeRange:  CodeDataCenterIDOutOfRange,
	})
	if err != nil {
		return nil, err
	}

	s := &Snowflake{
		layout:       layout,
		startTime:    c.StartTime,
		timeUnit:     c.TimeUnit,
		machineID:    machineID,
		dataCenterID: dataCenterID,
		policy:       c.ClockBackward.Policy,
		maxWait:      c.ClockBackward.MaxWait,
		clock:        o.clock,
		logger:       o.logger,
	}
	if o.meter != nil {
		if s.metrics, err = newGeneratorMetrics(o.meter); err != nil {
			return nil, err
		}
	}

	s.logger.Info("snowflake generator created",
		clog.Uint64("machine_id", machineID),
		clog.Uint64("data_center_id", dataCenterID),
		clog.String("layout", layoutString(layout)),
		clog.Time("start_time", c.StartTime),
		clog.Duration("time_unit", c.TimeUnit),
		clog.String("clock_backward_policy", c.ClockBackward.Policy),
		clog.Duration("max_wait", c.ClockBackward.MaxWait),
	)
	return s, nil
}

type idRule struct {
	explicit   *uint64
	provider   allocator.Provider
	fallback   allocator.Provider
	ipFallback bool
	check      func(uint64) bool
	max        uint64

	errFailed  error
	codeFailed string
	errCheck   error
	codeCheck  string
	errRange   error
	codeRange  string
}

func resolveID(rule idRule) (uint64, error) {
	var (
		id     uint64
		source allocator.Provider
	)
	switch {
	case rule.explicit != nil:
		id = *rule.explicit
	case rule.provider != nil:
		source = rule.provider
	case rule.ipFallback:
		source = rule.fallback
	case rule.max == 0:
		// 位宽为 0 的字段只能取 0
	default:
		return 0, xerrors.WithCode(
			xerrors.Wrap(rule.errFailed, "no explicit id, resolver or ip fallback configured"),
			rule.codeFailed,
		)
	}

	if source != nil {
		v, err := source()
		if err != nil {
			return 0, xerrors.WithCode(xerrors.Join(rule.errFailed, err), rule.codeFailed)
		}
		id = v
	}

	if rule.check != nil && !rule.check(id) {
		return 0, xerrors.WithCode(xerrors.Wrapf(rule.errCheck, "id %d", id), rule.codeCheck)
	}
	if id > rule.max {
		return 0, xerrors.WithCode(xerrors.Wrapf(rule.errRange, "id %d, max %d", id, rule.max), rule.codeRange)
	}
	return id, nil
}

func layoutString(l Layout) string {
	return strconv.Itoa(int(l.TimeBits())) + "/" + strconv.Itoa(int(l.SequenceBits())) + "/" +
		strconv.Itoa(int(l.DataCenterBits())) + "/" + strconv.Itoa(int(l.MachineBits()))
}

// ============================================================================
// 发号
// ============================================================================

// NextID 生成下一个 ID
//
// 可能的错误：ErrStartTimeAhead、ErrOverTimeLimit、ErrClockMovedBackwards。
func (s *Snowflake) NextID() (uint64, error) {
	seqBits := s.layout.sequenceBits
	maxSeq := s.layout.maxSequence

	for {
		now, err := s.elapsedUnits()
		if err != nil {
			s.metrics.incError(err)
			return 0, err
		}

		old := s.state.Load()
		last := old >> seqBits

		var next uint64
		switch {
		case now > last:
			next = now << seqBits
		case now == last:
			if old&maxSeq == maxSeq {
				s.metrics.incExhausted()
				s.waitNextUnit(last)
				continue
			}
			next = old + 1
		default:
			if err := s.handleBackwards(now, last); err != nil {
				s.metrics.incError(err)
				return 0, err
			}
			continue
		}

		if s.state.CompareAndSwap(old, next) {
			s.metrics.incGenerated()
			return s.layout.Pack(next>>seqBits, s.dataCenterID, s.machineID, next&maxSeq), nil
		}
	}
}

// Int64 生成 int64 形式的 ID
func (s *Snowflake) Int64() (int64, error) {
	id, err := s.NextID()
	if err != nil {
		return 0, err
	}
	return int64(id), nil
}

// Next 生成 int64 ID，出错时返回 -1
func (s *Snowflake) Next() int64 {
	id, err := s.Int64()
	if err != nil {
		return -1
	}
	return id
}

// String 生成十进制字符串 ID，出错时返回空串
func (s *Snowflake) String() string {
	id, err := s.NextID()
	if err != nil {
		return ""
	}
	return strconv.FormatUint(id, 10)
}

// elapsedUnits 返回自纪元起经过的完整时间单位数
func (s *Snowflake) elapsedUnits() (uint64, error) {
	d := s.clock.Now().Sub(s.startTime)
	if d < 0 {
		return 0, xerrors.WithCode(xerrors.Wrapf(ErrStartTimeAhead, "start time ahead by %v", -d), CodeStartTimeAhead)
	}
	units := uint64(d / s.timeUnit)
	if units > s.layout.maxTime {
		return 0, xerrors.WithCode(
			xerrors.Wrapf(ErrOverTimeLimit, "elapsed %d units, max %d", units, s.layout.maxTime),
			CodeOverTimeLimit,
		)
	}
	return units, nil
}

// waitNextUnit 自旋直到时间单位离开 last；出错或回拨时直接返回，由调用方重新判定
func (s *Snowflake) waitNextUnit(last uint64) {
	for {
		now, err := s.elapsedUnits()
		if err != nil || now != last {
			return
		}
		runtime.Gosched()
	}
}

// handleBackwards 按策略处理时钟回拨；返回 nil 表示时钟已追上，调用方应重试
func (s *Snowflake) handleBackwards(now, last uint64) error {
	drift := time.Duration(last-now) * s.timeUnit
	s.metrics.incBackwards()

	if s.policy == PolicyWait && drift <= s.maxWait {
		deadline := time.Now().Add(s.maxWait)
		for time.Now().Before(deadline) {
			runtime.Gosched()
			cur, err := s.elapsedUnits()
			if err != nil {
				return err
			}
			if cur >= last {
				s.logger.Warn("clock moved backwards, caught up after waiting",
					clog.Duration("drift", drift),
				)
				return nil
			}
		}
	}

	s.logger.Warn("clock moved backwards",
		clog.Duration("drift", drift),
		clog.String("policy", s.policy),
	)
	return xerrors.WithCode(
		xerrors.Wrapf(ErrClockMovedBackwards, "drift %v, policy %s", drift, s.policy),
		CodeClockMovedBackwards,
	)
}

// ============================================================================
// 访问器
// ============================================================================

func (s *Snowflake) Layout() Layout          { return s.layout }
func (s *Snowflake) MachineID() uint64       { return s.machineID }
func (s *Snowflake) DataCenterID() uint64    { return s.dataCenterID }
func (s *Snowflake) StartTime() time.Time    { return s.startTime }
func (s *Snowflake) TimeUnit() time.Duration { return s.timeUnit }

// Decompose 按本生成器的布局拆解 ID
func (s *Snowflake) Decompose(id uint64) Decomposed {
	return s.layout.Unpack(id)
}

// Timestamp 返回 ID 所在时间单位的起始时刻
func (s *Snowflake) Timestamp(id uint64) time.Time {
	return s.Decompose(id).Timestamp(s.startTime, s.timeUnit)
}
