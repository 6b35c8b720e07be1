package allocator

import (
	"context"

	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

const (
	MetricRenewFailures = "flake_allocator_renew_failures_total"
	MetricAllocations   = "flake_allocator_allocations_total"
)

type allocatorMetrics struct {
	driver        string
	renewFailures metrics.Counter
	allocations   metrics.Counter
}

func newAllocatorMetrics(m metrics.Meter, driver string) (*allocatorMetrics, error) {
	renew, err := m.Counter(MetricRenewFailures, "Lease renewals that failed or found the lease lost.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create renew failures counter")
	}
	allocs, err := m.Counter(MetricAllocations, "Allocation attempts by outcome.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create allocations counter")
	}
	return &allocatorMetrics{driver: driver, renewFailures: renew, allocations: allocs}, nil
}

func (m *allocatorMetrics) renewFailed(ctx context.Context) {
	m.renewFailures.Inc(ctx, metrics.L("driver", m.driver))
}

func (m *allocatorMetrics) allocated(ctx context.Context, outcome string) {
	m.allocations.Inc(ctx, metrics.L("driver", m.driver), metrics.L(metrics.LabelOutcome, outcome))
}
