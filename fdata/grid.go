package fdata

import (
	"fmt"
)

// DataLocation says whether a grid's data values live on cells or on points.
type DataLocation int

const (
	// LocationCells means one value per grid cell.
	LocationCells DataLocation = iota
	// LocationPoints means one value per grid point/vertex.
	LocationPoints
)

// GridKind distinguishes the grid specification families named in §3.
type GridKind int

const (
	KindNoGrid GridKind = iota
	KindUniform
	KindRectilinear
	KindESRI
	KindUnstructuredMesh
	KindUnstructuredPoints
)

// Transform maps data between two compatible-by-transform grids: axis
// permutation and/or reversal only. Regridding proper (changing resolution,
// reprojecting a CRS) is never implicit and is the business of an adapter,
// never of this function.
type Transform struct {
	// Perm[i] is the source axis index that becomes destination axis i.
	Perm []int
	// Flip[i] says whether destination axis i must be reversed after
	// permutation.
	Flip []bool
}

// Apply permutes and flips data (laid out row-major per srcShape) into the
// shape implied by Perm/Flip.
func (tr Transform) Apply(data []float64, srcShape []int) ([]float64, []int) {
	n := len(srcShape)
	dstShape := make([]int, n)
	for i, p := range tr.Perm {
		dstShape[i] = srcShape[p]
	}

	srcStrides := strides(srcShape)
	dstStrides := strides(dstShape)
	out := make([]float64, len(data))

	idx := make([]int, n)
	for linear := range data {
		unravel(linear, dstStrides, idx)
		srcIdx := make([]int, n)
		for i, p := range tr.Perm {
			v := idx[i]
			if tr.Flip[i] {
				v = dstShape[i] - 1 - v
			}
			srcIdx[p] = v
		}
		out[linear] = data[ravel(srcIdx, srcStrides)]
	}
	return out, dstShape
}

// Invert returns the transform that undoes tr, so that
// tr.Apply(tr.Invert().Apply(x)) reproduces x element-wise (P7).
func (tr Transform) Invert() Transform {
	n := len(tr.Perm)
	inv := Transform{Perm: make([]int, n), Flip: make([]bool, n)}
	for i, p := range tr.Perm {
		inv.Perm[p] = i
		inv.Flip[p] = tr.Flip[i]
	}
	return inv
}

// IsIdentity reports whether the transform is a no-op.
func (tr Transform) IsIdentity() bool {
	for i, p := range tr.Perm {
		if p != i || tr.Flip[i] {
			return false
		}
	}
	return true
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

func ravel(idx, strides []int) int {
	lin := 0
	for i, v := range idx {
		lin += v * strides[i]
	}
	return lin
}

func unravel(lin int, strides []int, out []int) {
	for i, s := range strides {
		out[i] = lin / s
		lin -= out[i] * s
	}
}

// Grid is the interface the dataflow core relies on for shape validation
// and automatic axis transforms. Concrete grid geometry (cell corner
// coordinates, CRS reprojection math) is an external collaborator; Grid
// exposes only what Envelope/Input need.
type Grid interface {
	Kind() GridKind
	// DataShape returns the shape of the data array at the given location.
	DataShape(loc DataLocation) []int
	// Equal reports exact equality (same kind, shape, CRS, orientation).
	Equal(other Grid) bool
	// TransformTo reports whether other is reachable from this grid by an
	// axis permutation/reversal only, and if so returns the transform.
	TransformTo(other Grid) (Transform, bool)
}

// NoGrid describes unstructured, non-georeferenced data of a fixed number
// of dimensions: scalars (dim 0), vectors (dim 1), matrices (dim 2), ...
type NoGrid struct {
	Dim int
}

func (g NoGrid) Kind() GridKind { return KindNoGrid }

func (g NoGrid) DataShape(DataLocation) []int {
	// NoGrid carries no fixed extents; shape is whatever the payload has.
	// Prepare only checks that the payload length equals the product of the
	// shape; it does not compare the shape's rank with Dim.
	return nil
}

func (g NoGrid) Equal(other Grid) bool {
	o, ok := other.(NoGrid)
	return ok && o.Dim == g.Dim
}

func (g NoGrid) TransformTo(other Grid) (Transform, bool) {
	if g.Equal(other) {
		return identity(g.Dim), true
	}
	return Transform{}, false
}

func identity(n int) Transform {
	tr := Transform{Perm: make([]int, n), Flip: make([]bool, n)}
	for i := range tr.Perm {
		tr.Perm[i] = i
	}
	return tr
}

// StructuredGrid covers uniform, rectilinear, and ESRI raster grids: all
// three share a fixed cell-count-per-axis shape, a CRS, and a named axis
// order with per-axis direction. They differ only in how cell corner
// coordinates are derived (regular spacing, explicit per-axis coordinate
// arrays, or an ESRI world-file header) — geometry this core never inspects.
type StructuredGrid struct {
	kind    GridKind // KindUniform, KindRectilinear, or KindESRI
	Dims    []int    // number of cells per axis, outer-to-inner
	CRS     string   // opaque CRS identifier, e.g. "EPSG:4326"; "" = unset
	Axes    []string // axis names in Dims order, e.g. ["y", "x"]
	Flipped []bool   // per-axis direction flag (true = decreasing coordinate)
}

// NewUniformGrid builds a StructuredGrid of kind KindUniform.
func NewUniformGrid(dims []int, crs string, axes []string, flipped []bool) StructuredGrid {
	return StructuredGrid{kind: KindUniform, Dims: dims, CRS: crs, Axes: axes, Flipped: flipped}
}

// NewRectilinearGrid builds a StructuredGrid of kind KindRectilinear.
func NewRectilinearGrid(dims []int, crs string, axes []string, flipped []bool) StructuredGrid {
	return StructuredGrid{kind: KindRectilinear, Dims: dims, CRS: crs, Axes: axes, Flipped: flipped}
}

// NewESRIGrid builds a StructuredGrid of kind KindESRI.
func NewESRIGrid(dims []int, crs string, axes []string, flipped []bool) StructuredGrid {
	return StructuredGrid{kind: KindESRI, Dims: dims, CRS: crs, Axes: axes, Flipped: flipped}
}

func (g StructuredGrid) Kind() GridKind { return g.kind }

func (g StructuredGrid) DataShape(loc DataLocation) []int {
	if loc == LocationCells {
		return g.Dims
	}
	// point data has one more point than cells per axis
	shape := make([]int, len(g.Dims))
	for i, d := range g.Dims {
		shape[i] = d + 1
	}
	return shape
}

func (g StructuredGrid) Equal(other Grid) bool {
	o, ok := other.(StructuredGrid)
	if !ok || o.kind != g.kind || o.CRS != g.CRS {
		return false
	}
	return sameInts(o.Dims, g.Dims) && sameStrings(o.Axes, g.Axes) && sameBools(o.Flipped, g.Flipped)
}

// TransformTo succeeds when other is the same kind of grid, same CRS, over
// the same axis set, differing only in axis order and/or direction.
func (g StructuredGrid) TransformTo(other Grid) (Transform, bool) {
	o, ok := other.(StructuredGrid)
	if !ok || o.kind != g.kind || o.CRS != g.CRS || len(o.Axes) != len(g.Axes) {
		return Transform{}, false
	}

	perm := make([]int, len(g.Axes))
	flip := make([]bool, len(g.Axes))
	used := make([]bool, len(g.Axes))
	for i, axis := range o.Axes {
		found := -1
		for j, a := range g.Axes {
			if a == axis && !used[j] {
				found = j
				break
			}
		}
		if found < 0 || g.Dims[found] != o.Dims[i] {
			return Transform{}, false
		}
		used[found] = true
		perm[i] = found
		flip[i] = g.Flipped[found] != o.Flipped[i]
	}
	return Transform{Perm: perm, Flip: flip}, true
}

// UnstructuredMesh describes a mesh of cells of unspecified shape (e.g. a
// triangulated or polygonal mesh), counted but not geometrically described.
type UnstructuredMesh struct {
	CRS      string
	CellCount int
}

func (g UnstructuredMesh) Kind() GridKind         { return KindUnstructuredMesh }
func (g UnstructuredMesh) DataShape(DataLocation) []int { return []int{g.CellCount} }
func (g UnstructuredMesh) Equal(other Grid) bool {
	o, ok := other.(UnstructuredMesh)
	return ok && o.CRS == g.CRS && o.CellCount == g.CellCount
}
func (g UnstructuredMesh) TransformTo(other Grid) (Transform, bool) {
	if g.Equal(other) {
		return identity(1), true
	}
	return Transform{}, false
}

// UnstructuredPoints describes a scattered point cloud, counted but not
// geometrically described.
type UnstructuredPoints struct {
	CRS        string
	PointCount int
}

func (g UnstructuredPoints) Kind() GridKind         { return KindUnstructuredPoints }
func (g UnstructuredPoints) DataShape(DataLocation) []int { return []int{g.PointCount} }
func (g UnstructuredPoints) Equal(other Grid) bool {
	o, ok := other.(UnstructuredPoints)
	return ok && o.CRS == g.CRS && o.PointCount == g.PointCount
}
func (g UnstructuredPoints) TransformTo(other Grid) (Transform, bool) {
	if g.Equal(other) {
		return identity(1), true
	}
	return Transform{}, false
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sameBools(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func dataSize(shape []int) int {
	size := 1
	for _, d := range shape {
		size *= d
	}
	return size
}

// ShapeError reports a payload/grid shape mismatch.
type ShapeError struct {
	Got, Want []int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("shape mismatch: got %v, want %v", e.Got, e.Want)
}
