package fdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_MetersPerSecondToKmPerHour(t *testing.T) {
	// S5: converting 1.0 m/s to km/h must yield 3.6.
	out, err := Convert([]float64{1.0, 2.0}, ParseUnit("m/s"), ParseUnit("km/h"))
	require.NoError(t, err)
	assert.InDelta(t, 3.6, out[0], 1e-12)
	assert.InDelta(t, 7.2, out[1], 1e-12)
}

func TestConvert_IdentityReturnsSameSlice(t *testing.T) {
	data := []float64{1, 2, 3}
	out, err := Convert(data, ParseUnit("m"), ParseUnit("m"))
	require.NoError(t, err)
	assert.True(t, &out[0] == &data[0], "identity conversion must return the same backing array (P6)")
}

func TestConvert_IncompatibleDimensionsError(t *testing.T) {
	_, err := Convert([]float64{1}, ParseUnit("m"), ParseUnit("kg"))
	assert.Error(t, err)
}

func TestParseUnit_UnknownSymbolRoundTrips(t *testing.T) {
	u := ParseUnit("mol/L")
	out, err := Convert([]float64{5}, u, ParseUnit("mol/L"))
	require.NoError(t, err)
	assert.Equal(t, 5.0, out[0])
}

func TestUnit_ConvertibleTo_RequiresSameDimension(t *testing.T) {
	assert.True(t, ParseUnit("m").ConvertibleTo(ParseUnit("km")))
	assert.False(t, ParseUnit("m").ConvertibleTo(ParseUnit("s")))
}

func TestUnit_IsUnset(t *testing.T) {
	var u Unit
	assert.True(t, u.IsUnset())
	assert.False(t, Dimensionless.IsUnset())
	assert.True(t, Dimensionless.IsDimensionless())
}
