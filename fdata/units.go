package fdata

import "fmt"

// Unit is a physical unit symbol with a linear conversion factor to a fixed
// reference per dimension. Unit arithmetic itself (parsing arbitrary
// compound expressions, CF-convention attribute handling) is explicitly an
// external collaborator per the specification; this type implements just
// enough to let Info and Envelope validate and convert the units actually
// exercised by the dataflow core.
type Unit struct {
	symbol string
	dim    string  // dimension family, e.g. "velocity", "time-rate", ""
	toRef  float64 // multiply a magnitude in this unit by toRef to get the reference magnitude
}

// Dimensionless is the unit for plain numbers.
var Dimensionless = Unit{symbol: "", dim: "", toRef: 1}

// IsUnset reports whether the unit is the zero value, i.e. absent from an
// Info that has not yet been resolved.
func (u Unit) IsUnset() bool {
	return u == Unit{}
}

// IsDimensionless reports whether the unit carries no physical dimension.
func (u Unit) IsDimensionless() bool {
	return u.dim == "" && !u.IsUnset()
}

// String returns the unit's symbol.
func (u Unit) String() string {
	if u.symbol == "" {
		return "1"
	}
	return u.symbol
}

// registry is the closed set of units the core ships with conversions for.
// Hosted components and adapters needing more exotic units supply their own
// Unit values with a matching dim and toRef; convertibility only requires
// the dimensions to agree.
var registry = map[string]Unit{
	"":      Dimensionless,
	"1":     Dimensionless,
	"m/s":   {symbol: "m/s", dim: "velocity", toRef: 1},
	"km/h":  {symbol: "km/h", dim: "velocity", toRef: 1.0 / 3.6},
	"m":     {symbol: "m", dim: "length", toRef: 1},
	"km":    {symbol: "km", dim: "length", toRef: 1000},
	"mm":    {symbol: "mm", dim: "length", toRef: 0.001},
	"s":     {symbol: "s", dim: "duration", toRef: 1},
	"min":   {symbol: "min", dim: "duration", toRef: 60},
	"h":     {symbol: "h", dim: "duration", toRef: 3600},
	"d":     {symbol: "d", dim: "duration", toRef: 86400},
	"/d":    {symbol: "/d", dim: "rate-per-day", toRef: 1},
	"1/d":   {symbol: "1/d", dim: "rate-per-day", toRef: 1},
	"kg":    {symbol: "kg", dim: "mass", toRef: 1},
	"g":     {symbol: "g", dim: "mass", toRef: 0.001},
	"degC":  {symbol: "degC", dim: "temperature", toRef: 1},
	"K":     {symbol: "K", dim: "temperature", toRef: 1},
}

// ParseUnit looks up a unit by symbol. Unknown symbols are accepted as
// dimensionless-incompatible opaque units identified by their symbol alone,
// so that components using domain-specific units no registry entry covers
// can still round-trip through an Input whose target units are textually
// identical (P6).
func ParseUnit(symbol string) Unit {
	if u, ok := registry[symbol]; ok {
		return u
	}
	return Unit{symbol: symbol, dim: "opaque:" + symbol, toRef: 1}
}

// ConvertibleTo reports whether a magnitude in u can be expressed in target
// without ambiguity, i.e. they belong to the same dimension family.
func (u Unit) ConvertibleTo(target Unit) bool {
	if u.IsUnset() || target.IsUnset() {
		return false
	}
	return u.dim == target.dim
}

// EquivalentTo reports whether u and target denote the identical unit, used
// to detect and skip the identity conversion (§4.1).
func (u Unit) EquivalentTo(target Unit) bool {
	return u == target
}

// Factor returns the multiplicative factor to convert a magnitude from u to
// target: magnitude_target = magnitude_u * Factor(target).
func (u Unit) Factor(target Unit) (float64, error) {
	if !u.ConvertibleTo(target) {
		return 0, fmt.Errorf("units %q and %q are not convertible", u, target)
	}
	return u.toRef / target.toRef, nil
}

// Convert applies Factor to every element of data, returning a new slice.
// The identity conversion (EquivalentTo) is detected and skipped, returning
// the input slice unchanged, per §4.1.
func Convert(data []float64, from, to Unit) ([]float64, error) {
	if from.EquivalentTo(to) {
		return data, nil
	}
	factor, err := from.Factor(to)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = v * factor
	}
	return out, nil
}
