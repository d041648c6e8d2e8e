package fdata

import (
	"time"

	ferrors "github.com/finam-ufz/finam/errors"
)

// Envelope is the immutable unit of data exchanged between an Output and an
// Input: a payload tagged with the grid it is defined on, the units it is
// expressed in, and the time it is valid for.
//
// Payload is never mutated in place once an Envelope leaves Prepare: Output
// and the time-caching adapters retain Envelopes in history, and a caller
// that reused its backing array after pushing it would silently corrupt
// that history. Prepare detects the most common form of this mistake,
// aliasing the same backing array across two pushes, and rejects it.
type Envelope struct {
	Payload []float64
	Shape   []int
	Grid    Grid
	Units   Unit
	Time    time.Time
}

// Prepare validates value's shape against info's grid and returns an
// Envelope tagged with info's units (Dimensionless when unset); the units
// themselves are not checked. previous, if non-nil, is the most recently pushed Envelope on
// the same slot; Prepare rejects a value sharing a backing array with it.
func Prepare(component, operation string, value []float64, shape []int, info Info, when time.Time, previous *Envelope) (Envelope, error) {
	grid := info.Grid
	if grid == nil {
		grid = NoGrid{Dim: 1}
	}

	loc := info.Location
	want := grid.DataShape(loc)
	if want != nil {
		if !sameInts(shape, want) {
			return Envelope{}, ferrors.Wrap(ferrors.DataError, component, operation, &ShapeError{Got: shape, Want: want})
		}
	}
	if dataSize(shape) != len(value) {
		return Envelope{}, ferrors.Wrap(ferrors.DataError, component, operation,
			&ShapeError{Got: []int{len(value)}, Want: []int{dataSize(shape)}})
	}

	if previous != nil && sharesBackingArray(previous.Payload, value) {
		return Envelope{}, ferrors.Newf(ferrors.DataError, component, operation,
			"pushed payload aliases the previously pushed buffer; callers must not reuse or mutate data after pushing it")
	}

	units := info.Units
	if units.IsUnset() {
		units = Dimensionless
	}

	return Envelope{Payload: value, Shape: shape, Grid: grid, Units: units, Time: when}, nil
}

// sharesBackingArray reports whether a and b are non-empty slices backed by
// the same underlying array at the same offset, the cheap, reliable signal
// that a caller pushed a buffer it still holds a live reference to.
func sharesBackingArray(a, b []float64) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return &a[0] == &b[0]
}

// StripTime returns env's payload and shape without its time tag, for
// adapters that only ever see a single snapshot at a time (e.g. Scale).
func StripTime(env Envelope) ([]float64, []int) {
	return env.Payload, env.Shape
}

// ConvertUnits returns a copy of env with its payload converted to target
// units. It is pure: env itself is never mutated, and the identity
// conversion returns env's own payload slice unchanged (P6).
func ConvertUnits(component, operation string, env Envelope, target Unit) (Envelope, error) {
	converted, err := Convert(env.Payload, env.Units, target)
	if err != nil {
		return Envelope{}, ferrors.Wrap(ferrors.MetadataError, component, operation, err)
	}
	out := env
	out.Payload = converted
	out.Units = target
	return out, nil
}

// TransformGrid returns a copy of env with its payload transformed onto
// target via tr, which must be the transform produced by
// env.Grid.TransformTo(target).
func TransformGrid(env Envelope, target Grid, tr Transform) Envelope {
	if tr.IsIdentity() {
		out := env
		out.Grid = target
		return out
	}
	payload, shape := tr.Apply(env.Payload, env.Shape)
	return Envelope{Payload: payload, Shape: shape, Grid: target, Units: env.Units, Time: env.Time}
}
