// Package metric provides Prometheus-based metrics collection and an HTTP server
// for observing the component structure of a running application.
//
// The registry offers core metrics (tracked construction blocks, owner lookups,
// port name lookups, component lifecycle counts, thread container cycle times,
// peer status) plus registration of component-specific collectors.
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(":9090", "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server failed: %v", err)
//	    }
//	}()
//	defer server.Stop()
//
// The core metrics are recorded through *Metrics. Every Record method accepts a nil
// receiver, so packages take an optional *Metrics and never branch on it:
//
//	var m *metric.Metrics // metrics disabled
//	m.RecordTrackedBlocks(3) // no-op
package metric
