package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finam-ufz/finam/component"
)

func TestNewRegistry_RegistersCoreMetricsOnce(t *testing.T) {
	registry := NewRegistry()
	require.NotNil(t, registry.CoreMetrics())

	// A metric vector is only gathered once it has at least one labeled
	// child, so record one sample on each before gathering.
	core := registry.CoreMetrics()
	core.RecordComponentState("rainfall", int(component.Created))
	core.RecordUpdate("rainfall")
	core.RecordConnectPass("rainfall", component.Connected.String())
	core.RecordSpillToDisk("rainfall", "out")
	core.RecordOutputMemory("rainfall", "out", 0)
	core.RecordSchedulerError("SetupError")

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["finam_component_state"])
	assert.True(t, names["finam_scheduler_updates_total"])
	assert.True(t, names["finam_connect_passes_total"])
	assert.True(t, names["finam_connect_duration_seconds"])
	assert.True(t, names["finam_output_spill_to_disk_total"])
	assert.True(t, names["finam_output_memory_bytes"])
	assert.True(t, names["finam_scheduler_errors_total"])
}

func TestRegistry_RecordComponentState_UpdatesGauge(t *testing.T) {
	registry := NewRegistry()
	registry.CoreMetrics().RecordComponentState("rainfall", int(component.Connected))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() != "finam_component_state" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "component" && l.GetValue() == "rainfall" {
					found = true
					assert.Equal(t, float64(component.Connected), m.GetGauge().GetValue())
				}
			}
		}
	}
	assert.True(t, found, "expected a finam_component_state sample labeled rainfall")
}

func TestRegistry_RegisterCounterVec_RejectsDuplicateName(t *testing.T) {
	registry := NewRegistry()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rainfall_requests_total",
		Help: "Total rainfall lookups served.",
	}, []string{"station"})

	require.NoError(t, registry.RegisterCounterVec("rainfall_requests_total", counter))

	other := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rainfall_requests_total_v2",
		Help: "Total rainfall lookups served.",
	}, []string{"station"})
	err := registry.RegisterCounterVec("rainfall_requests_total", other)
	assert.Error(t, err)
}

func TestRegistry_UnregisterRemovesCollector(t *testing.T) {
	registry := NewRegistry()
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rainfall_backlog",
		Help: "Pending rainfall lookups.",
	}, []string{"station"})

	require.NoError(t, registry.RegisterGaugeVec("rainfall_backlog", gauge))
	assert.True(t, registry.Unregister("rainfall_backlog"))
	assert.False(t, registry.Unregister("rainfall_backlog"))

	require.NoError(t, registry.RegisterGaugeVec("rainfall_backlog", gauge))
}
