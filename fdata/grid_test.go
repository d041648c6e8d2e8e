package fdata

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredGrid_TransformTo_AxisSwap(t *testing.T) {
	src := NewUniformGrid([]int{2, 3}, "EPSG:4326", []string{"y", "x"}, []bool{false, false})
	dst := NewUniformGrid([]int{3, 2}, "EPSG:4326", []string{"x", "y"}, []bool{false, false})

	tr, ok := src.TransformTo(dst)
	require.True(t, ok)

	data := []float64{1, 2, 3, 4, 5, 6} // shape [2,3]
	out, shape := tr.Apply(data, []int{2, 3})
	assert.Equal(t, []int{3, 2}, shape)
	// row-major [2,3] -> transposed [3,2]
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, out)
}

func TestTransform_InvertRoundTrips(t *testing.T) {
	// P7: applying a transform then its inverse reproduces the original data.
	src := NewUniformGrid([]int{2, 3}, "", []string{"y", "x"}, []bool{false, true})
	dst := NewUniformGrid([]int{3, 2}, "", []string{"x", "y"}, []bool{true, false})

	tr, ok := src.TransformTo(dst)
	require.True(t, ok)

	data := []float64{1, 2, 3, 4, 5, 6}
	out, shape := tr.Apply(data, []int{2, 3})

	back, backShape := tr.Invert().Apply(out, shape)
	assert.Equal(t, []int{2, 3}, backShape)
	if diff := cmp.Diff(data, back); diff != "" {
		t.Fatalf("round trip mismatch: %s", diff)
	}
}

func TestStructuredGrid_TransformTo_IncompatibleAxesFails(t *testing.T) {
	src := NewUniformGrid([]int{2, 3}, "EPSG:4326", []string{"y", "x"}, []bool{false, false})
	dst := NewRectilinearGrid([]int{2, 3}, "EPSG:4326", []string{"y", "x"}, []bool{false, false})

	_, ok := src.TransformTo(dst)
	assert.False(t, ok, "different grid kinds must not be transform-compatible")
}

func TestNoGrid_Equal(t *testing.T) {
	a := NoGrid{Dim: 1}
	b := NoGrid{Dim: 1}
	c := NoGrid{Dim: 2}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestStructuredGrid_DataShape_PointsHaveOneMorePerAxis(t *testing.T) {
	g := NewUniformGrid([]int{2, 3}, "", []string{"y", "x"}, []bool{false, false})
	assert.Equal(t, []int{2, 3}, g.DataShape(LocationCells))
	assert.Equal(t, []int{3, 4}, g.DataShape(LocationPoints))
}
