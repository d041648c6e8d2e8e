package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every metric the scheduler and connect fixpoint record
// about a running Composition.
type Metrics struct {
	ComponentState   *prometheus.GaugeVec
	UpdatesTotal     *prometheus.CounterVec
	ConnectPasses    *prometheus.CounterVec
	ConnectDuration  prometheus.Histogram
	SpillToDiskTotal *prometheus.CounterVec
	OutputMemoryUsed *prometheus.GaugeVec
	SchedulerErrors  *prometheus.CounterVec
}

// NewMetrics builds the metric set. Every vector except SchedulerErrors
// (labeled by error kind) is labeled by component, and
// SpillToDiskTotal/OutputMemoryUsed additionally by output name, so a
// single Composition's dashboard can break down by either axis.
func NewMetrics() *Metrics {
	return &Metrics{
		ComponentState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "finam",
				Subsystem: "component",
				Name:      "state",
				Help:      "Current lifecycle state of a component, as the State enum's ordinal value.",
			},
			[]string{"component"},
		),
		UpdatesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finam",
				Subsystem: "scheduler",
				Name:      "updates_total",
				Help:      "Total number of Update calls the scheduler has made on a component.",
			},
			[]string{"component"},
		),
		ConnectPasses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finam",
				Subsystem: "connect",
				Name:      "passes_total",
				Help:      "Total number of connect fixpoint passes a component has gone through.",
			},
			[]string{"component", "result"},
		),
		ConnectDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "finam",
				Subsystem: "connect",
				Name:      "duration_seconds",
				Help:      "Wall-clock time spent in the composition-wide connect fixpoint.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		SpillToDiskTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finam",
				Subsystem: "output",
				Name:      "spill_to_disk_total",
				Help:      "Total number of times an output's history was spilled to disk after exceeding its memory limit.",
			},
			[]string{"component", "output"},
		),
		OutputMemoryUsed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "finam",
				Subsystem: "output",
				Name:      "memory_bytes",
				Help:      "Estimated in-memory size of an output's retained history.",
			},
			[]string{"component", "output"},
		),
		SchedulerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "finam",
				Subsystem: "scheduler",
				Name:      "errors_total",
				Help:      "Total number of errors raised during Connect or Run, by taxonomy Kind.",
			},
			[]string{"kind"},
		),
	}
}

// RecordComponentState records a component's current lifecycle state.
func (m *Metrics) RecordComponentState(component string, state int) {
	m.ComponentState.WithLabelValues(component).Set(float64(state))
}

// RecordUpdate increments the update counter for component.
func (m *Metrics) RecordUpdate(component string) {
	m.UpdatesTotal.WithLabelValues(component).Inc()
}

// RecordConnectPass records one connect fixpoint pass and its result
// (CONNECTED, CONNECTING, or CONNECTING_IDLE).
func (m *Metrics) RecordConnectPass(component, result string) {
	m.ConnectPasses.WithLabelValues(component, result).Inc()
}

// RecordSpillToDisk records one output history spill-to-disk event.
func (m *Metrics) RecordSpillToDisk(component, output string) {
	m.SpillToDiskTotal.WithLabelValues(component, output).Inc()
}

// RecordOutputMemory sets the current estimated memory usage of an
// output's retained history.
func (m *Metrics) RecordOutputMemory(component, output string, bytes int64) {
	m.OutputMemoryUsed.WithLabelValues(component, output).Set(float64(bytes))
}

// RecordSchedulerError increments the error counter for the given
// taxonomy Kind name.
func (m *Metrics) RecordSchedulerError(kind string) {
	m.SchedulerErrors.WithLabelValues(kind).Inc()
}
