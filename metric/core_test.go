package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordUpdate_IncrementsPerComponent(t *testing.T) {
	m := NewMetrics()
	m.RecordUpdate("rainfall")
	m.RecordUpdate("rainfall")
	m.RecordUpdate("river")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.UpdatesTotal.WithLabelValues("rainfall")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.UpdatesTotal.WithLabelValues("river")))
}

func TestMetrics_RecordConnectPass_LabelsByResult(t *testing.T) {
	m := NewMetrics()
	m.RecordConnectPass("rainfall", "CONNECTING")
	m.RecordConnectPass("rainfall", "CONNECTING")
	m.RecordConnectPass("rainfall", "CONNECTED")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ConnectPasses.WithLabelValues("rainfall", "CONNECTING")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ConnectPasses.WithLabelValues("rainfall", "CONNECTED")))
}

func TestMetrics_RecordSpillToDisk_CountsPerOutput(t *testing.T) {
	m := NewMetrics()
	m.RecordSpillToDisk("rainfall", "intensity")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.SpillToDiskTotal.WithLabelValues("rainfall", "intensity")))
}

func TestMetrics_RecordOutputMemory_SetsGauge(t *testing.T) {
	m := NewMetrics()
	m.RecordOutputMemory("rainfall", "intensity", 4096)
	assert.Equal(t, float64(4096), testutil.ToFloat64(m.OutputMemoryUsed.WithLabelValues("rainfall", "intensity")))

	m.RecordOutputMemory("rainfall", "intensity", 1024)
	assert.Equal(t, float64(1024), testutil.ToFloat64(m.OutputMemoryUsed.WithLabelValues("rainfall", "intensity")))
}

func TestMetrics_RecordSchedulerError_CountsByKind(t *testing.T) {
	m := NewMetrics()
	m.RecordSchedulerError("SetupError")
	m.RecordSchedulerError("SetupError")
	m.RecordSchedulerError("ConnectStalled")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SchedulerErrors.WithLabelValues("SetupError")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SchedulerErrors.WithLabelValues("ConnectStalled")))
}
