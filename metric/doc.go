// Package metric provides Prometheus-based instrumentation for a running
// Composition: component lifecycle state, scheduler update counts, connect
// fixpoint passes and duration, and output history memory/spill tracking.
//
// # Architecture
//
// Metrics holds the fixed set of collectors a Composition records against
// directly. Registry wraps a prometheus.Registry, registers Metrics plus the
// standard Go runtime and process collectors, and lets a caller register
// additional collectors under the same registry without risking a name
// collision with the core set.
//
// # Basic usage
//
//	registry := metric.NewRegistry()
//	core := registry.CoreMetrics()
//	core.RecordComponentState("rainfall", int(component.Connected))
//	core.RecordUpdate("rainfall")
//
// Expose registry.PrometheusRegistry() via promhttp.HandlerFor in the
// hosting process if an exposition endpoint is wanted; this package does not
// run one itself.
//
// # Core metrics
//
//   - finam_component_state: current lifecycle State ordinal, by component
//   - finam_scheduler_updates_total: Update calls, by component
//   - finam_connect_passes_total: connect fixpoint passes, by component and
//     result (CONNECTED, CONNECTING, CONNECTING_IDLE)
//   - finam_connect_duration_seconds: wall-clock time spent in Connect
//   - finam_output_spill_to_disk_total: history spill-to-disk events, by
//     component and output
//   - finam_output_memory_bytes: estimated retained history size, by
//     component and output
//   - finam_scheduler_errors_total: errors raised during Connect or Run, by
//     taxonomy Kind
//
// # Registering additional metrics
//
// A component that wants its own counters registers them under the same
// Registry so a single scrape covers everything:
//
//	reqs := prometheus.NewCounterVec(prometheus.CounterOpts{
//	    Name: "rainfall_requests_total",
//	    Help: "Total rainfall lookups served.",
//	}, []string{"station"})
//	err := registry.RegisterCounterVec("rainfall_requests_total", reqs)
package metric
