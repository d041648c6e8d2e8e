package fdata

import "time"

// MaskPolicy says how an Info's Mask field should be interpreted.
type MaskPolicy int

const (
	// MaskNone means the data carries no masked entries.
	MaskNone MaskPolicy = iota
	// MaskFlex means masked entries are allowed but their positions are not
	// fixed across pushes.
	MaskFlex
	// MaskFixed means masked entries, if any, sit at the same positions on
	// every push; Values holds that fixed pattern.
	MaskFixed
)

// Mask carries the masked-value policy supplemented from original_source,
// present on Info as an optional field alongside Grid and Units.
type Mask struct {
	Policy MaskPolicy
	Values []bool // meaningful only when Policy == MaskFixed
}

// Info is the metadata descriptor exchanged between a source Output and a
// target Input before data flows: the grid, units, valid time, and mask an
// Envelope on that slot will carry, plus any component-defined metadata
// under Extra. Any field may be unset, signalling "not yet known"; Merge
// absorbs a counterpart's value for whichever fields are still unset.
type Info struct {
	Time     *time.Time
	Grid     Grid
	Location DataLocation
	Units    Unit
	Mask     Mask
	Extra    map[string]any
}

// NewInfo builds an Info with the given grid and units; all other fields
// start unset.
func NewInfo(grid Grid, units Unit) Info {
	return Info{Grid: grid, Units: units, Extra: map[string]any{}}
}

func (info Info) hasGrid() bool  { return info.Grid != nil }
func (info Info) hasUnits() bool { return !info.Units.IsUnset() }
func (info Info) hasTime() bool  { return info.Time != nil }

// Copy returns a deep-enough copy of info: Extra is copied, Grid/Units are
// immutable value-or-interface types and shared by reference.
func (info Info) Copy() Info {
	return info.CopyWith(Info{}, false)
}

// CopyWith returns a copy of info with any field set on overrides replacing
// info's own value. When useNone is true, a field left at its zero value on
// overrides is treated as an explicit request to unset that field on the
// result; when false (the common case), a zero-value override field means
// "keep info's existing value".
func (info Info) CopyWith(overrides Info, useNone bool) Info {
	out := Info{
		Time:     info.Time,
		Grid:     info.Grid,
		Location: info.Location,
		Units:    info.Units,
		Mask:     info.Mask,
		Extra:    map[string]any{},
	}
	for k, v := range info.Extra {
		out.Extra[k] = v
	}

	if overrides.Time != nil || useNone {
		out.Time = overrides.Time
	}
	if overrides.Grid != nil || useNone {
		out.Grid = overrides.Grid
	}
	if overrides.hasUnits() || useNone {
		out.Units = overrides.Units
	}
	if overrides.Location != 0 || useNone {
		out.Location = overrides.Location
	}
	if overrides.Mask.Policy != MaskNone || useNone {
		out.Mask = overrides.Mask
	}
	for k, v := range overrides.Extra {
		out.Extra[k] = v
	}
	return out
}

// Merge absorbs every unset field of info from other, in place conceptually
// but returning the result: grid, units, time, and each Extra key present on
// other but absent from info. Merge is idempotent: merging the same other
// twice yields the same result as merging it once, since an already-set
// field is never overwritten (this is how Output.GetInfo absorbs the first
// downstream Info it sees without clobbering a value set by an earlier
// downstream target).
func (info Info) Merge(other Info) Info {
	out := info
	out.Extra = map[string]any{}
	for k, v := range info.Extra {
		out.Extra[k] = v
	}

	if !out.hasGrid() && other.hasGrid() {
		out.Grid = other.Grid
	}
	if !out.hasUnits() && other.hasUnits() {
		out.Units = other.Units
	}
	if !out.hasTime() && other.hasTime() {
		out.Time = other.Time
	}
	if out.Mask.Policy == MaskNone && other.Mask.Policy != MaskNone {
		out.Mask = other.Mask
	}
	for k, v := range other.Extra {
		if _, exists := out.Extra[k]; !exists {
			out.Extra[k] = v
		}
	}
	return out
}

// Accepts reports whether incoming is compatible with info: grids equal or
// reachable by an axis transform (or either grid unset), convertible units
// (or either side's units unset), and matching Extra keys present on both.
// Masks are not compared. fromDownstream distinguishes the two
// directions the connect fixpoint calls Accepts in: a downstream Input
// checking the Info an upstream Output has published (fromDownstream
// false), versus an upstream Output checking a request an Input has
// published upstream (fromDownstream true). The check is symmetric except
// for the message attached to a failure, which names the right end as the
// offending side.
func (info Info) Accepts(incoming Info, fromDownstream bool) (bool, string) {
	side := "upstream"
	if fromDownstream {
		side = "downstream"
	}

	if info.hasGrid() && incoming.hasGrid() && !info.Grid.Equal(incoming.Grid) {
		if _, ok := info.Grid.TransformTo(incoming.Grid); !ok {
			return false, side + " grid is incompatible and not reachable by an axis transform"
		}
	}

	if info.hasUnits() && incoming.hasUnits() && !info.Units.ConvertibleTo(incoming.Units) {
		return false, side + " units \"" + incoming.Units.String() + "\" are not convertible to \"" + info.Units.String() + "\""
	}

	for k, v := range info.Extra {
		if ov, ok := incoming.Extra[k]; ok && ov != v {
			return false, side + " metadata key \"" + k + "\" disagrees"
		}
	}
	return true, ""
}
