package adapter

import (
	"testing"
	"time"

	"github.com/finam-ufz/finam/component"
	"github.com/finam-ufz/finam/fdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale_MetersPerSecondToKmPerHour(t *testing.T) {
	out := component.NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 0}, fdata.ParseUnit("m/s"))))

	sc := NewScale("scale", 3.6, fdata.ParseUnit("km/h"))
	require.NoError(t, sc.SetSource(out))

	t0 := time.Now()
	require.NoError(t, out.PushData([]float64{1}, []int{1}, t0))

	env, err := sc.GetData(t0, nil)
	require.NoError(t, err)
	assert.InDelta(t, 3.6, env.Payload[0], 1e-9)
	assert.Equal(t, fdata.ParseUnit("km/h"), env.Units)
}

func TestLinearTime_InterpolatesBetweenPushes(t *testing.T) {
	out := component.NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 0}, fdata.Dimensionless)))

	lt := NewLinearTime("lt")
	require.NoError(t, lt.SetSource(out))
	out.AddTarget(lt)

	t0 := time.Now()
	t1 := t0.Add(time.Hour)
	require.NoError(t, out.PushData([]float64{0}, []int{1}, t0))
	require.NoError(t, out.PushData([]float64{10}, []int{1}, t1))

	env, err := lt.GetData(t0.Add(30*time.Minute), nil)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, env.Payload[0], 1e-9)
}

func TestIntegrate_SumOverTime_RatePerDayOverTenDays(t *testing.T) {
	out := component.NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 0}, fdata.ParseUnit("/d"))))

	ig := NewIntegrate("sum", false)
	require.NoError(t, ig.SetSource(out))
	out.AddTarget(ig)

	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.AddDate(0, 0, 10)
	require.NoError(t, out.PushData([]float64{2}, []int{1}, t0))
	require.NoError(t, out.PushData([]float64{2}, []int{1}, t1))

	env, err := ig.GetData(t1, nil)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, env.Payload[0], 1e-9)
	assert.True(t, env.Units.IsDimensionless())
}

func TestIntegrate_SumOverTime_GetInfoRewritesUnitsToDimensionless(t *testing.T) {
	out := component.NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 0}, fdata.ParseUnit("/d"))))

	ig := NewIntegrate("sum", false)
	require.NoError(t, ig.SetSource(out))

	info, err := ig.GetInfo(fdata.NewInfo(fdata.NoGrid{Dim: 0}, fdata.Unit{}))
	require.NoError(t, err)
	assert.True(t, info.Units.IsDimensionless(), "sum-over-time changes units, so negotiated Info must not carry the source's rate units through unchanged")
}

func TestIntegrate_Average_GetInfoPassesSourceUnitsThrough(t *testing.T) {
	out := component.NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 0}, fdata.ParseUnit("/d"))))

	ig := NewIntegrate("avg", true)
	require.NoError(t, ig.SetSource(out))

	info, err := ig.GetInfo(fdata.NewInfo(fdata.NoGrid{Dim: 0}, fdata.Unit{}))
	require.NoError(t, err)
	assert.Equal(t, fdata.ParseUnit("/d"), info.Units, "time-average keeps the source's rate units")
}

func TestFixedDelay_ClosesACycle(t *testing.T) {
	out := component.NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 0}, fdata.Dimensionless)))

	delay := NewFixedDelay("delay", time.Hour)
	require.NoError(t, delay.SetSource(out))
	out.AddTarget(delay)

	t0 := time.Now()
	t1 := t0.Add(time.Hour)
	require.NoError(t, out.PushData([]float64{1}, []int{1}, t0))
	require.NoError(t, out.PushData([]float64{2}, []int{1}, t1))

	env, err := delay.GetData(t1, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, env.Payload, "a fixed delay of 1h requested at t1 must serve the value pushed at t0")
}

func TestFixedDelay_IsNoDependency(t *testing.T) {
	delay := NewFixedDelay("delay", time.Hour)
	var _ NoDependency = delay
	var _ DelayProvider = delay
}

func TestTimeCachingBase_RejectsSecondTarget(t *testing.T) {
	lt := NewLinearTime("lt")
	require.NoError(t, lt.AddTarget(nil))
	err := lt.AddTarget(nil)
	assert.Error(t, err)
}
