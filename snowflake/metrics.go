package snowflake

import (
	"context"

	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

// 指标名称
const (
	// MetricIDsGenerated 成功生成的 ID 数 (Counter)
	MetricIDsGenerated = "flake_ids_generated_total"

	// MetricSequenceExhausted 序列号在一个时间单位内耗尽的次数 (Counter)
	MetricSequenceExhausted = "flake_sequence_exhausted_total"

	// MetricClockBackwards 观察到时钟回拨的次数 (Counter)
	MetricClockBackwards = "flake_clock_backwards_total"

	// MetricGenerateErrors 发号失败次数，按错误码区分 (Counter)
	MetricGenerateErrors = "flake_generate_errors_total"
)

type generatorMetrics struct {
	generated metrics.Counter
	exhausted metrics.Counter
	backwards metrics.Counter
	errors    metrics.Counter
}

func newGeneratorMetrics(m metrics.Meter) (*generatorMetrics, error) {
	generated, err := m.Counter(MetricIDsGenerated, "Snowflake identifiers generated.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create generated counter")
	}
	exhausted, err := m.Counter(MetricSequenceExhausted, "Times the sequence space of a time unit was exhausted.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create exhausted counter")
	}
	backwards, err := m.Counter(MetricClockBackwards, "Clock regressions observed by the generator.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create clock backwards counter")
	}
	errs, err := m.Counter(MetricGenerateErrors, "Identifier generation failures by error code.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create generate errors counter")
	}
	return &generatorMetrics{
		generated: generated,
		exhausted: exhausted,
		backwards: backwards,
		errors:    errs,
	}, nil
}

// 以下方法允许 nil 接收者，未注入 Meter 时为空操作

func (m *generatorMetrics) incGenerated() {
	if m != nil {
		m.generated.Inc(context.Background())
	}
}

func (m *generatorMetrics) incExhausted() {
	if m != nil {
		m.exhausted.Inc(context.Background())
	}
}

func (m *generatorMetrics) incBackwards() {
	if m != nil {
		m.backwards.Inc(context.Background())
	}
}

func (m *generatorMetrics) incError(err error) {
	if m != nil {
		m.errors.Inc(context.Background(), metrics.L(metrics.LabelCode, xerrors.GetCode(err)))
	}
}
