package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	ferrors "github.com/finam-ufz/finam/errors"
)

// Registrar is the registration surface Registry offers for additional
// collectors. A Composition records through *Metrics (see
// composition.WithMetrics), not through this interface.
type Registrar interface {
	RegisterCounterVec(name string, counterVec *prometheus.CounterVec) error
	RegisterGaugeVec(name string, gaugeVec *prometheus.GaugeVec) error
	RegisterHistogram(name string, histogram prometheus.Histogram) error
	Unregister(name string) bool
}

// Registry owns a Prometheus registry plus the core FINAM metrics, and
// lets callers register additional collectors (one per hosted component
// that wants its own counters) under the same registry.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
	registered         map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a Registry with the core Metrics already registered,
// plus the standard Go runtime and process collectors.
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()

	r := &Registry{
		prometheusRegistry: prometheusRegistry,
		registered:         map[string]prometheus.Collector{},
	}
	r.Metrics = NewMetrics()
	r.registerCoreMetrics()

	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// PrometheusRegistry returns the underlying Prometheus registry, for
// wiring into a promhttp.Handler by a caller that wants an exposition
// endpoint.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the scheduler-level Metrics this Registry owns.
func (r *Registry) CoreMetrics() *Metrics {
	return r.Metrics
}

func (r *Registry) registerCoreMetrics() {
	r.prometheusRegistry.MustRegister(
		r.Metrics.ComponentState,
		r.Metrics.UpdatesTotal,
		r.Metrics.ConnectPasses,
		r.Metrics.ConnectDuration,
		r.Metrics.SpillToDiskTotal,
		r.Metrics.OutputMemoryUsed,
		r.Metrics.SchedulerErrors,
	)
}

// RegisterCounterVec registers an additional counter vector under name.
func (r *Registry) RegisterCounterVec(name string, counterVec *prometheus.CounterVec) error {
	return r.register(name, counterVec)
}

// RegisterGaugeVec registers an additional gauge vector under name.
func (r *Registry) RegisterGaugeVec(name string, gaugeVec *prometheus.GaugeVec) error {
	return r.register(name, gaugeVec)
}

// RegisterHistogram registers an additional histogram under name.
func (r *Registry) RegisterHistogram(name string, histogram prometheus.Histogram) error {
	return r.register(name, histogram)
}

func (r *Registry) register(name string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registered[name]; exists {
		return ferrors.Newf(ferrors.SetupError, "metric", "Register", "metric %q already registered", name)
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var alreadyRegistered prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegistered) {
			return ferrors.Newf(ferrors.SetupError, "metric", "Register", "prometheus conflict for metric %q", name)
		}
		return ferrors.Wrap(ferrors.SetupError, "metric", "Register", fmt.Errorf("registering %q: %w", name, err))
	}

	r.registered[name] = collector
	return nil
}

// Unregister removes a previously registered collector.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	collector, exists := r.registered[name]
	if !exists {
		return false
	}
	if r.prometheusRegistry.Unregister(collector) {
		delete(r.registered, name)
		return true
	}
	return false
}
