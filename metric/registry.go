package metric

import (
	semmetric "github.com/c360studio/semstreams/metric"
)

// Registry is a platform metrics registry with the consolidation metrics
// registered on it. The embedded registry supplies the core platform metrics
// and the Go runtime collectors.
type Registry struct {
	*semmetric.MetricsRegistry
	Crate *Metrics
}

// NewRegistry creates a registry with the consolidation metrics registered.
func NewRegistry() (*Registry, error) {
	base := semmetric.NewMetricsRegistry()
	m := NewMetrics()
	if err := m.Register(base); err != nil {
		return nil, err
	}
	m.core = base.CoreMetrics()
	return &Registry{MetricsRegistry: base, Crate: m}, nil
}
