package field

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearGrid samples f on an evenly spaced Full3D lattice.
func linearGrid(t *testing.T, n [3]uint32, lo, hi Point, f func(Point) [3]float64) *Grid {
	t.Helper()
	var ext [3]Range
	for i := range ext {
		ext[i] = NewRange(lo[i], hi[i], n[i])
	}
	g := &Grid{Kind: Full3D, Extents: ext, Name: "linear"}
	g.Samples = make([]float64, g.SampleCount()*3)
	for iz := uint32(0); iz < n[2]; iz++ {
		for iy := uint32(0); iy < n[1]; iy++ {
			for ix := uint32(0); ix < n[0]; ix++ {
				p := Point{g.Coordinate(0, ix), g.Coordinate(1, iy), g.Coordinate(2, iz)}
				v := f(p)
				base := g.IndexAt(ix, iy, iz) * 3
				copy(g.Samples[base:base+3], v[:])
			}
		}
	}
	require.NoError(t, g.Validate())
	return g
}

func TestNewRange(t *testing.T) {
	t.Parallel()

	r := NewRange(-1, 1, 5)
	assert.Equal(t, 0.5, r.Step)
	assert.True(t, r.Active)
	assert.NoError(t, r.Validate())

	single := NewRange(3, 3, 1)
	assert.False(t, single.Active)
	assert.Zero(t, single.Step)
	assert.NoError(t, single.Validate())
}

func TestRangeValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    Range
	}{
		{"zero count", Range{}},
		{"single active", Range{Count: 1, Active: true}},
		{"inverted", Range{Min: 1, Max: 0, Step: 0.5, Count: 3, Active: true}},
		{"zero step", Range{Min: 0, Max: 1, Step: 0, Count: 3, Active: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			assert.True(t, errors.Is(err, ErrBadStructure), "got %v", err)
		})
	}
}

func TestGridValidate(t *testing.T) {
	t.Parallel()

	g := linearGrid(t, [3]uint32{2, 2, 2}, Point{0, 0, 0}, Point{1, 1, 1}, func(Point) [3]float64 { return [3]float64{} })

	short := g.Clone()
	short.Samples = short.Samples[:len(short.Samples)-1]
	assert.ErrorIs(t, short.Validate(), ErrBadStructure)

	strided := g.Clone()
	strided.Stride = 2
	assert.ErrorIs(t, strided.Validate(), ErrBadStructure)

	flat := g.Clone()
	flat.Extents[2] = Range{Count: 1}
	assert.ErrorIs(t, flat.Validate(), ErrBadStructure)
}

func TestBoundsAndClip(t *testing.T) {
	t.Parallel()

	g := linearGrid(t, [3]uint32{3, 3, 3}, Point{-1, -2, 0}, Point{1, 2, 4}, func(Point) [3]float64 { return [3]float64{} })

	assert.True(t, g.PointInBounds(Point{-1, 2, 4}))
	assert.False(t, g.PointInBounds(Point{-1.0001, 0, 0}))
	assert.Equal(t, Point{1, -2, 2}, g.Clip(Point{5, -9, 2}))

	idx, ok := g.MapToIndex(Point{0.6, -2, 3.1})
	require.True(t, ok)
	assert.Equal(t, [3]uint32{2, 0, 2}, idx)

	_, ok = g.MapToIndex(Point{0, 0, 5})
	assert.False(t, ok)
}

func TestAxisymmetricBounds(t *testing.T) {
	t.Parallel()

	g, err := NewAxisymmetric2D(
		[3]Range{NewRange(0, 2, 3), NewRange(0, 0, 1), NewRange(-1, 1, 3)},
		[2][]float64{make([]float64, 9), make([]float64, 9)},
		[2]string{"es.Ex", "es.Ez"},
	)
	require.NoError(t, err)

	b := g.Bounds()
	assert.Equal(t, Point{-2, -2, -1}, b.Min)
	assert.Equal(t, Point{2, 2, 1}, b.Max)
	assert.Equal(t, uint32(3), g.Stride)
	assert.Equal(t, 0, g.RadialAxis())

	idx, ok := g.MapToIndex(Point{0, 1.1, 0.4})
	require.True(t, ok)
	assert.Equal(t, [3]uint32{1, 0, 1}, idx)
}

func TestBoxUnion(t *testing.T) {
	t.Parallel()

	a := Box{Min: Point{0, 0, 0}, Max: Point{1, 1, 1}}
	b := Box{Min: Point{-1, 0.5, 0}, Max: Point{0.5, 2, 0.5}}
	u := a.Union(b)
	assert.Equal(t, Point{-1, 0, 0}, u.Min)
	assert.Equal(t, Point{1, 2, 1}, u.Max)
}

func TestIndexAtLargeGrid(t *testing.T) {
	t.Parallel()

	g := &Grid{Extents: [3]Range{{Count: 70000}, {Count: 70000}, {Count: 2}}}
	got := g.IndexAt(1, 0, 1)
	assert.Equal(t, uint64(70000)*70000+1, got)
}
