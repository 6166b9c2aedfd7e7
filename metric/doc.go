// Package metric exposes Prometheus metrics for consolidation runs.
//
// A Registry wraps the platform MetricsRegistry, which carries the core
// platform metrics and the Go runtime collectors, and registers the
// consolidation Metrics on it under ServiceName. Metrics implements
// consolidate.Observer, so passing it as Options.Observer records every
// subcrate load; RecordRun records the outcome of a whole run and feeds the
// platform processing duration and error counters.
//
// NewServer serves the registry over HTTP:
//
//	reg, err := metric.NewRegistry()
//	srv, err := metric.NewServer(9090, "/metrics", reg, security.Config{})
//	go srv.Start()
//	defer srv.Stop()
package metric
