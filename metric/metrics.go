package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/semcrate/consolidate"
	semmetric "github.com/c360studio/semstreams/metric"
	"github.com/c360studio/semstreams/pkg/errs"
)

const namespace = "semcrate"

// ServiceName labels semcrate in the platform metrics.
const ServiceName = "semcrate"

// Operation label values of the platform processing duration.
const (
	OperationConsolidate  = "consolidate"
	OperationLoadSubcrate = "load_subcrate"
)

// Outcome label values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metrics contains the consolidation metrics.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	Documents      prometheus.Counter
	Entities       prometheus.Gauge
	MergedEntities prometheus.Counter
	Folders        prometheus.Counter

	SubcrateLoads        *prometheus.CounterVec
	SubcrateLoadDuration prometheus.Histogram
	SubcratesSkipped     prometheus.Counter

	// core is the platform metrics of the registry, nil until registered.
	core *semmetric.Metrics
}

// NewMetrics creates unregistered consolidation metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "total",
				Help:      "Total number of consolidation runs by outcome",
			},
			[]string{"status"},
		),

		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "runs",
				Name:      "duration_seconds",
				Help:      "Consolidation run duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		Documents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "documents",
				Name:      "consolidated_total",
				Help:      "Total number of documents folded into consolidated output",
			},
		),

		Entities: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "output",
				Name:      "entities",
				Help:      "Number of entities in the last consolidated document",
			},
		),

		MergedEntities: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "entities",
				Name:      "merged_total",
				Help:      "Total number of shared entities merged across documents",
			},
		),

		Folders: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "folders",
				Name:      "synthesized_total",
				Help:      "Total number of subcrate folders synthesized",
			},
		),

		SubcrateLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "subcrates",
				Name:      "loads_total",
				Help:      "Total number of subcrate loads by outcome",
			},
			[]string{"status"},
		),

		SubcrateLoadDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "subcrates",
				Name:      "load_duration_seconds",
				Help:      "Subcrate load duration in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		SubcratesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "subcrates",
				Name:      "skipped_total",
				Help:      "Total number of discovered subcrates left unexpanded",
			},
		),
	}
}

// Register adds the metrics to r under ServiceName.
func (m *Metrics) Register(r semmetric.MetricsRegistrar) error {
	steps := []func() error{
		func() error { return r.RegisterCounterVec(ServiceName, "runs_total", m.RunsTotal) },
		func() error { return r.RegisterHistogram(ServiceName, "run_duration_seconds", m.RunDuration) },
		func() error { return r.RegisterCounter(ServiceName, "documents_consolidated_total", m.Documents) },
		func() error { return r.RegisterGauge(ServiceName, "output_entities", m.Entities) },
		func() error { return r.RegisterCounter(ServiceName, "entities_merged_total", m.MergedEntities) },
		func() error { return r.RegisterCounter(ServiceName, "folders_synthesized_total", m.Folders) },
		func() error { return r.RegisterCounterVec(ServiceName, "subcrate_loads_total", m.SubcrateLoads) },
		func() error {
			return r.RegisterHistogram(ServiceName, "subcrate_load_duration_seconds", m.SubcrateLoadDuration)
		},
		func() error { return r.RegisterCounter(ServiceName, "subcrates_skipped_total", m.SubcratesSkipped) },
	}
	for _, register := range steps {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

// SubcrateLoaded implements consolidate.Observer.
func (m *Metrics) SubcrateLoaded(_ string, d time.Duration, err error) {
	m.SubcrateLoads.WithLabelValues(status(err)).Inc()
	m.SubcrateLoadDuration.Observe(d.Seconds())
	if m.core != nil {
		m.core.RecordProcessingDuration(ServiceName, OperationLoadSubcrate, d)
		if err != nil {
			m.core.RecordError(ServiceName, errs.Classify(err).String())
		}
	}
}

// RecordPublished counts n messages published on subject.
func (m *Metrics) RecordPublished(subject string, n int) {
	if m.core == nil {
		return
	}
	m.core.MessagesPublished.WithLabelValues(ServiceName, subject).Add(float64(n))
}

// RecordRun records the outcome of one consolidation run. Stats are only
// counted for successful runs.
func (m *Metrics) RecordRun(stats consolidate.Stats, d time.Duration, err error) {
	m.RunsTotal.WithLabelValues(status(err)).Inc()
	m.RunDuration.Observe(d.Seconds())
	if m.core != nil {
		m.core.RecordProcessingDuration(ServiceName, OperationConsolidate, d)
	}
	if err != nil {
		if m.core != nil {
			m.core.RecordError(ServiceName, errs.Classify(err).String())
		}
		return
	}
	m.Documents.Add(float64(stats.DocumentsConsolidated))
	m.Entities.Set(float64(stats.TotalEntities))
	m.MergedEntities.Add(float64(stats.MergedEntities))
	m.Folders.Add(float64(stats.Folders))
	m.SubcratesSkipped.Add(float64(stats.SubcratesSkipped))
}

func status(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusOK
}

var _ consolidate.Observer = (*Metrics)(nil)
