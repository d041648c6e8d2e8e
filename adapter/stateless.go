package adapter

import (
	"time"

	"github.com/finam-ufz/finam/component"
	ferrors "github.com/finam-ufz/finam/errors"
	"github.com/finam-ufz/finam/fdata"
)

// Scale multiplies every value pulled from its source by Factor and
// rewrites the unit tag to Units (if set) so that downstream code sees
// units consistent with the scaled magnitude, e.g. rewriting "m/s" scaled
// by 3.6 as "km/h" (S5).
type Scale struct {
	Base
	Factor float64
	Units  fdata.Unit // zero value keeps the upstream unit
}

// NewScale creates a Scale adapter.
func NewScale(name string, factor float64, units fdata.Unit) *Scale {
	return &Scale{Base: Base{Name: name}, Factor: factor, Units: units}
}

// GetData pulls upstream and multiplies every element by Factor.
func (s *Scale) GetData(t time.Time, target component.Notifiable) (fdata.Envelope, error) {
	env, err := s.PullUpstream(t, target)
	if err != nil {
		return fdata.Envelope{}, err
	}
	out := make([]float64, len(env.Payload))
	for i, v := range env.Payload {
		out[i] = v * s.Factor
	}
	units := env.Units
	if !s.Units.IsUnset() {
		units = s.Units
	}
	return fdata.Envelope{Payload: out, Shape: env.Shape, Grid: env.Grid, Units: units, Time: env.Time}, nil
}

// GetInfo forwards the request upstream and rewrites the resolved Units to
// Units, if set.
func (s *Scale) GetInfo(requested fdata.Info) (fdata.Info, error) {
	info, err := s.Base.GetInfo(requested)
	if err != nil {
		return fdata.Info{}, err
	}
	if !s.Units.IsUnset() {
		info.Units = s.Units
	}
	return info, nil
}

// Callback applies an arbitrary pure function to every value pulled from
// its source. It carries no state of its own; branching to more than one
// target is safe.
type Callback struct {
	Base
	Fn func(value float64, t time.Time) float64
}

// NewCallback creates a Callback adapter.
func NewCallback(name string, fn func(value float64, t time.Time) float64) *Callback {
	return &Callback{Base: Base{Name: name}, Fn: fn}
}

// GetData pulls upstream and applies Fn element-wise.
func (c *Callback) GetData(t time.Time, target component.Notifiable) (fdata.Envelope, error) {
	env, err := c.PullUpstream(t, target)
	if err != nil {
		return fdata.Envelope{}, err
	}
	out := make([]float64, len(env.Payload))
	for i, v := range env.Payload {
		out[i] = c.Fn(v, env.Time)
	}
	return fdata.Envelope{Payload: out, Shape: env.Shape, Grid: env.Grid, Units: env.Units, Time: env.Time}, nil
}

// ValueToGrid broadcasts a single scalar pulled from a NoGrid source across
// every cell of the downstream grid.
type ValueToGrid struct {
	Base
	TargetGrid fdata.Grid
}

// NewValueToGrid creates a ValueToGrid adapter broadcasting onto targetGrid.
func NewValueToGrid(name string, targetGrid fdata.Grid) *ValueToGrid {
	return &ValueToGrid{Base: Base{Name: name}, TargetGrid: targetGrid}
}

// GetData pulls a scalar upstream and fills every cell of TargetGrid with
// it.
func (v *ValueToGrid) GetData(t time.Time, target component.Notifiable) (fdata.Envelope, error) {
	env, err := v.PullUpstream(t, target)
	if err != nil {
		return fdata.Envelope{}, err
	}
	if len(env.Payload) != 1 {
		return fdata.Envelope{}, ferrors.Newf(ferrors.DataError, v.Name, "GetData", "value-to-grid requires a scalar upstream, got %d values", len(env.Payload))
	}
	shape := v.TargetGrid.DataShape(fdata.LocationCells)
	n := 1
	for _, d := range shape {
		n *= d
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = env.Payload[0]
	}
	return fdata.Envelope{Payload: out, Shape: shape, Grid: v.TargetGrid, Units: env.Units, Time: env.Time}, nil
}

// GetInfo requests a bare NoGrid scalar upstream and publishes TargetGrid
// downstream.
func (v *ValueToGrid) GetInfo(requested fdata.Info) (fdata.Info, error) {
	upstreamReq := requested
	upstreamReq.Grid = fdata.NoGrid{Dim: 0}
	info, err := v.Base.GetInfo(upstreamReq)
	if err != nil {
		return fdata.Info{}, err
	}
	info.Grid = v.TargetGrid
	return info, nil
}

// GridToValue reduces every pulled grid payload to a single scalar via Fn
// (e.g. an arithmetic mean or sum).
type GridToValue struct {
	Base
	Fn func(values []float64) float64
}

// NewGridToValue creates a GridToValue adapter reducing with fn.
func NewGridToValue(name string, fn func(values []float64) float64) *GridToValue {
	return &GridToValue{Base: Base{Name: name}, Fn: fn}
}

// GetData pulls a grid payload upstream and reduces it to a scalar.
func (g *GridToValue) GetData(t time.Time, target component.Notifiable) (fdata.Envelope, error) {
	env, err := g.PullUpstream(t, target)
	if err != nil {
		return fdata.Envelope{}, err
	}
	return fdata.Envelope{Payload: []float64{g.Fn(env.Payload)}, Shape: []int{1}, Grid: fdata.NoGrid{Dim: 0}, Units: env.Units, Time: env.Time}, nil
}

// GetInfo requests the upstream grid unchanged and publishes a bare NoGrid
// scalar downstream.
func (g *GridToValue) GetInfo(requested fdata.Info) (fdata.Info, error) {
	info, err := g.Base.GetInfo(requested)
	if err != nil {
		return fdata.Info{}, err
	}
	info.Grid = fdata.NoGrid{Dim: 0}
	return info, nil
}
