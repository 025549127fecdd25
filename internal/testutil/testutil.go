// Package testutil provides shared test fixtures: synthetic grids, files on
// the memory filesystem and HTTP helpers.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/emfield/internal/field"
	"github.com/banshee-data/emfield/internal/fsutil"
)

// GridFunc samples f on an evenly spaced Full3D lattice spanning lo..hi.
func GridFunc(tb testing.TB, lo, hi field.Point, n [3]uint32, f func(field.Point) [3]float64) *field.Grid {
	tb.Helper()
	var ext [3]field.Range
	for i := range ext {
		ext[i] = field.NewRange(lo[i], hi[i], n[i])
	}
	g := &field.Grid{Kind: field.Full3D, Extents: ext}
	g.Samples = make([]float64, g.SampleCount()*3)
	for iz := uint32(0); iz < n[2]; iz++ {
		for iy := uint32(0); iy < n[1]; iy++ {
			for ix := uint32(0); ix < n[0]; ix++ {
				p := field.Point{g.Coordinate(0, ix), g.Coordinate(1, iy), g.Coordinate(2, iz)}
				v := f(p)
				base := g.IndexAt(ix, iy, iz) * 3
				copy(g.Samples[base:base+3], v[:])
			}
		}
	}
	if err := g.Validate(); err != nil {
		tb.Fatalf("fixture grid invalid: %v", err)
	}
	return g
}

// UniformGrid returns a Full3D grid holding v at every sample.
func UniformGrid(tb testing.TB, lo, hi field.Point, n [3]uint32, v [3]float64) *field.Grid {
	tb.Helper()
	return GridFunc(tb, lo, hi, n, func(field.Point) [3]float64 { return v })
}

// AxisymmetricGrid samples f(r, z) on an (r, z) slice with the radial axis
// on x.
func AxisymmetricGrid(tb testing.TB, rmax, zmin, zmax float64, nr, nz uint32, f func(r, z float64) [2]float64) *field.Grid {
	tb.Helper()
	rr := field.NewRange(0, rmax, nr)
	zr := field.NewRange(zmin, zmax, nz)
	cols := [2][]float64{make([]float64, nr*nz), make([]float64, nr*nz)}
	for iz := uint32(0); iz < nz; iz++ {
		for ir := uint32(0); ir < nr; ir++ {
			v := f(rr.Min+float64(ir)*rr.Step, zr.Min+float64(iz)*zr.Step)
			cols[0][iz*nr+ir] = v[0]
			cols[1][iz*nr+ir] = v[1]
		}
	}
	g, err := field.NewAxisymmetric2D([3]field.Range{rr, field.NewRange(0, 0, 1), zr}, cols, [2]string{"Ex", "Ez"})
	if err != nil {
		tb.Fatalf("fixture axisymmetric grid: %v", err)
	}
	return g
}

// WriteGrid stores g as a binary field file at path.
func WriteGrid(tb testing.TB, fsys fsutil.FileSystem, path string, g *field.Grid) {
	tb.Helper()
	w, err := fsys.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	if err := field.WriteBinary(w, g, field.Provenance{Model: "fixture", Source: path}); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("close %s: %v", path, err)
	}
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(tb testing.TB, got, want int) {
	tb.Helper()
	if got != want {
		tb.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
