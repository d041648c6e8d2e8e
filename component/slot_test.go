package component

import (
	"os"
	"testing"
	"time"

	ferrors "github.com/finam-ufz/finam/errors"
	"github.com/finam-ufz/finam/fdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutput_PushThenPull_ReturnsPushedData(t *testing.T) {
	out := NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.ParseUnit("m"))))

	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, out.PushData([]float64{1, 2, 3}, []int{3}, t0))

	env, err := out.GetData(t0, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, env.Payload)
}

func TestOutput_GetData_StepLeftInterpolation(t *testing.T) {
	out := NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.Dimensionless)))

	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	require.NoError(t, out.PushData([]float64{1}, []int{1}, t0))
	require.NoError(t, out.PushData([]float64{2}, []int{1}, t1))

	env, err := out.GetData(t0.Add(30*time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, env.Payload, "step-left: must return the entry at or before the requested time")
}

func TestOutput_GetData_BeforeFirstPushIsNoData(t *testing.T) {
	out := NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.Dimensionless)))

	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, out.PushData([]float64{1}, []int{1}, t0))

	_, err := out.GetData(t0.Add(-time.Hour), nil)
	require.Error(t, err)
	assert.Equal(t, ferrors.NoData, ferrors.KindOf(err))
}

func TestOutput_StaticPush_SecondPushRejected(t *testing.T) {
	out := NewOutput("o", true)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.Dimensionless)))

	t0 := time.Now()
	require.NoError(t, out.PushData([]float64{1}, []int{1}, t0))

	err := out.PushData([]float64{2}, []int{1}, t0)
	require.Error(t, err)
	assert.Equal(t, ferrors.SetupError, ferrors.KindOf(err))
}

func TestOutput_PushData_EqualTimestampRejectedAfterFirstPush(t *testing.T) {
	out := NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.Dimensionless)))

	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, out.PushData([]float64{1}, []int{1}, t0))

	err := out.PushData([]float64{2}, []int{1}, t0)
	require.Error(t, err, "a second push at the same timestamp must not be accepted as a no-op advance")
	assert.Equal(t, ferrors.DataError, ferrors.KindOf(err))
}

func TestOutput_PushData_SpillsOldestEntryPastMemoryLimit(t *testing.T) {
	out := NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.Dimensionless)))

	var spilled int
	var lastMem int64
	out.SetMemoryLimit(16, t.TempDir())
	out.SetMetricsHook(func() { spilled++ }, func(bytes int64) { lastMem = bytes })

	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)
	require.NoError(t, out.PushData([]float64{1}, []int{1}, t0))
	require.NoError(t, out.PushData([]float64{2}, []int{1}, t1))
	require.NoError(t, out.PushData([]float64{3}, []int{1}, t2))

	assert.Equal(t, 1, spilled, "pushing a third 8-byte entry past a 16-byte budget must spill exactly the oldest one")
	assert.Equal(t, int64(16), lastMem)

	env, err := out.GetData(t0, nil)
	require.NoError(t, err, "a pull for the spilled entry's time must restore it from the scratch file")
	assert.Equal(t, []float64{1}, env.Payload)
	assert.True(t, env.Units.IsDimensionless())

	env, err = out.GetData(t1, nil)
	require.NoError(t, err, "entries still retained in memory must still be served directly")
	assert.Equal(t, []float64{2}, env.Payload)
}

func TestOutput_PushData_OutOfRangeWithoutScratchDirectory(t *testing.T) {
	out := NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.Dimensionless)))
	out.SetMemoryLimit(8, "")

	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	require.NoError(t, out.PushData([]float64{1}, []int{1}, t0))

	err := out.PushData([]float64{2}, []int{1}, t1)
	require.Error(t, err, "exceeding the budget with no scratch directory configured must fail, not silently retain everything")
	assert.Equal(t, ferrors.OutOfRange, ferrors.KindOf(err))
}

func TestOutput_Close_RemovesScratchFile(t *testing.T) {
	out := NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.Dimensionless)))
	out.SetMemoryLimit(8, t.TempDir())

	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	require.NoError(t, out.PushData([]float64{1}, []int{1}, t0))
	require.NoError(t, out.PushData([]float64{2}, []int{1}, t1))

	path := out.spillFile.Name()
	require.NoError(t, out.Close())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "Close must remove the scratch file as part of finalize cleanup")
}

func TestInput_PullData_ConvertsUnits(t *testing.T) {
	out := NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.ParseUnit("m/s"))))

	in := NewInput("i", false)
	require.NoError(t, in.SetSource(out))

	requested := fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.ParseUnit("km/h"))
	_, err := in.ExchangeInfo(requested)
	require.NoError(t, err)

	t0 := time.Now()
	require.NoError(t, out.PushData([]float64{1}, []int{1}, t0))

	env, err := in.PullData(t0)
	require.NoError(t, err)
	assert.InDelta(t, 3.6, env.Payload[0], 1e-9)
}

func TestInput_SetSource_Twice_Rejected(t *testing.T) {
	out1 := NewOutput("a", false)
	out2 := NewOutput("b", false)
	in := NewInput("i", false)

	require.NoError(t, in.SetSource(out1))
	err := in.SetSource(out2)
	require.Error(t, err)
}

func TestInput_PullData_StaticCachesFirstValue(t *testing.T) {
	out := NewOutput("o", true)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.Dimensionless)))

	in := NewInput("i", true)
	require.NoError(t, in.SetSource(out))
	_, err := in.ExchangeInfo(fdata.NewInfo(nil, fdata.Unit{}))
	require.NoError(t, err)

	t0 := time.Now()
	require.NoError(t, out.PushData([]float64{9}, []int{1}, t0))

	first, err := in.PullData(t0)
	require.NoError(t, err)
	second, err := in.PullData(t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first.Payload, second.Payload)
}

func TestCallbackOutput_ComputesOnDemand(t *testing.T) {
	calls := 0
	out := NewCallbackOutput("o", func(t time.Time) ([]float64, []int, error) {
		calls++
		return []float64{float64(calls)}, []int{1}, nil
	})
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.Dimensionless)))

	e1, err := out.GetData(time.Now(), nil)
	require.NoError(t, err)
	e2, err := out.GetData(time.Now(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, e1.Payload, e2.Payload)
}

func TestCallbackInput_FiresOnPush(t *testing.T) {
	out := NewOutput("o", false)
	require.NoError(t, out.PushInfo(fdata.NewInfo(fdata.NoGrid{Dim: 1}, fdata.Dimensionless)))

	var got fdata.Envelope
	in := NewCallbackInput("i", func(t time.Time, env fdata.Envelope) { got = env })
	require.NoError(t, in.SetSource(out))
	_, err := in.ExchangeInfo(fdata.NewInfo(nil, fdata.Unit{}))
	require.NoError(t, err)
	out.AddTarget(in)

	t0 := time.Now()
	require.NoError(t, out.PushData([]float64{7}, []int{1}, t0))
	assert.Equal(t, []float64{7}, got.Payload)
}
