package connector

import (
	"context"

	"github.com/ceyewan/flake/metrics"
	"github.com/ceyewan/flake/xerrors"
)

const (
	MetricConnectAttempts = "connector_connect_attempts_total"
	MetricConnectFailures = "connector_connect_failures_total"
)

type connMetrics struct {
	attempts metrics.Counter
	failures metrics.Counter
}

func newConnMetrics(m metrics.Meter) (*connMetrics, error) {
	attempts, err := m.Counter(MetricConnectAttempts, "Connection attempts by connector type.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create connect attempts counter")
	}
	failures, err := m.Counter(MetricConnectFailures, "Failed connection attempts by connector type.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create connect failures counter")
	}
	return &connMetrics{attempts: attempts, failures: failures}, nil
}

func (m *connMetrics) attempt(ctx context.Context, kind string) {
	m.attempts.Inc(ctx, metrics.L("connector", kind))
}

func (m *connMetrics) failure(ctx context.Context, kind string) {
	m.failures.Inc(ctx, metrics.L("connector", kind))
}
