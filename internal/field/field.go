// Package field holds the structured-grid vector field model: extents,
// interpolation and the fixed-layout binary file.
package field

import (
	"fmt"
	"math"
)

// Kind selects the physical representation of a grid.
type Kind uint32

const (
	// Axisymmetric2D is an (r, z) slice revolved about the z axis.
	Axisymmetric2D Kind = 0
	// Full3D is a Cartesian grid with samples on all three axes.
	Full3D Kind = 1
)

// Components returns the number of vector components stored per sample.
func (k Kind) Components() int {
	switch k {
	case Axisymmetric2D:
		return 2
	case Full3D:
		return 3
	}
	return 0
}

func (k Kind) String() string {
	switch k {
	case Axisymmetric2D:
		return "axisymmetric-2d"
	case Full3D:
		return "full-3d"
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// Range is the per-axis sampling metadata.
type Range struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Step   float64 `json:"step"`
	Count  uint32  `json:"count"`
	Active bool    `json:"active"`
}

// NewRange builds a range of count evenly spaced samples over [min, max].
// A single-sample range is inactive with zero step.
func NewRange(min, max float64, count uint32) Range {
	r := Range{Min: min, Max: max, Count: count}
	if count > 1 {
		r.Step = (max - min) / float64(count-1)
		r.Active = true
	}
	return r
}

// Validate checks the range invariants.
func (r Range) Validate() error {
	if r.Count == 0 {
		return fmt.Errorf("%w: zero sample count", ErrBadStructure)
	}
	if r.Count == 1 {
		if r.Active {
			return fmt.Errorf("%w: single-sample axis marked active", ErrBadStructure)
		}
		return nil
	}
	if !(r.Max > r.Min) || !(r.Step > 0) {
		return fmt.Errorf("%w: count %d needs max > min and step > 0 (min=%g max=%g step=%g)",
			ErrBadStructure, r.Count, r.Min, r.Max, r.Step)
	}
	return nil
}

// Contains reports whether c lies in the closed interval [Min, Max].
func (r Range) Contains(c float64) bool {
	return c >= r.Min && c <= r.Max
}

// locate finds the lower cell index for c and the reduced coordinate within
// that cell. Indices are clamped so that idx+1 is always a valid sample.
func (r Range) locate(c float64) (uint32, float64, error) {
	if r.Count < 2 || r.Step <= 0 {
		return 0, 0, fmt.Errorf("%w: axis has %d samples", ErrBadStructure, r.Count)
	}
	f := math.Floor((c - r.Min) / r.Step)
	if f > float64(r.Count-2) {
		f = float64(r.Count - 2)
	}
	if f < 0 {
		f = 0
	}
	idx := uint32(f)
	rc := (c - (r.Min + float64(idx)*r.Step)) / r.Step
	// Written as a negated range test so NaN is rejected.
	if !(rc >= -reducedSlop && rc <= 1+reducedSlop) {
		return 0, 0, fmt.Errorf("%w: %g outside [%g, %g]", ErrOutOfRange, c, r.Min, r.Max)
	}
	return idx, rc, nil
}

// reducedSlop is how far a reduced cell coordinate may stray outside [0, 1].
const reducedSlop = 0.001

// Point is a Cartesian coordinate.
type Point [3]float64

// Box is an axis-aligned bounding box.
type Box struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Contains is the exact closed-interval test on every axis. NaN
// coordinates are never contained.
func (b Box) Contains(p Point) bool {
	for i := 0; i < 3; i++ {
		if !(p[i] >= b.Min[i] && p[i] <= b.Max[i]) {
			return false
		}
	}
	return true
}

// Union returns the smallest box holding both b and o.
func (b Box) Union(o Box) Box {
	u := b
	for i := 0; i < 3; i++ {
		u.Min[i] = math.Min(u.Min[i], o.Min[i])
		u.Max[i] = math.Max(u.Max[i], o.Max[i])
	}
	return u
}

// Provenance names where a field came from.
type Provenance struct {
	Model  string `json:"model"`
	Source string `json:"source"`
}

// Grid is one vector field sampled on a structured grid.
//
// Full3D samples are packed component-minor with x fastest:
// ((iz*ny+iy)*nx+ix)*3+c. Axisymmetric2D grids keep the radial extent
// (min 0) on the single active transverse axis and pack 2-component
// samples as (iz*Stride+ir)*2+c.
type Grid struct {
	Kind       Kind
	Extents    [3]Range
	Stride     uint32
	Samples    []float64
	Name       string
	Provenance Provenance
}

// Components returns the number of values per sample.
func (g *Grid) Components() int { return g.Kind.Components() }

// SampleCount returns count0*count1*count2 using 64-bit accumulation.
func (g *Grid) SampleCount() uint64 {
	n := uint64(1)
	for _, e := range g.Extents {
		n *= uint64(e.Count)
	}
	return n
}

// RadialAxis returns the active transverse axis of an axisymmetric grid.
func (g *Grid) RadialAxis() int {
	if g.Extents[0].Active {
		return 0
	}
	return 1
}

// Validate checks the structural invariants for the grid kind.
func (g *Grid) Validate() error {
	for i, e := range g.Extents {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("axis %d: %w", i, err)
		}
	}
	active := 0
	for _, e := range g.Extents {
		if e.Active {
			active++
		}
	}
	switch g.Kind {
	case Full3D:
		if active != 3 {
			return fmt.Errorf("%w: full-3d grid has %d active axes, want 3", ErrBadStructure, active)
		}
		if g.Stride != 0 {
			return fmt.Errorf("%w: full-3d grid has stride %d, want unset", ErrBadStructure, g.Stride)
		}
	case Axisymmetric2D:
		if active != 2 || !g.Extents[2].Active || (g.Extents[0].Active == g.Extents[1].Active) {
			return fmt.Errorf("%w: axisymmetric grid needs one active transverse axis and an active z axis", ErrBadStructure)
		}
		r := g.Extents[g.RadialAxis()]
		if r.Min != 0 {
			return fmt.Errorf("%w: radial axis %d starts at %g, want 0", ErrBadStructure, g.RadialAxis(), r.Min)
		}
		if g.Stride != r.Count {
			return fmt.Errorf("%w: stride %d does not match radial count %d", ErrBadStructure, g.Stride, r.Count)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrBadStructure, uint32(g.Kind))
	}
	want := g.SampleCount() * uint64(g.Components())
	if uint64(len(g.Samples)) != want {
		return fmt.Errorf("%w: %d sample values, want %d", ErrBadStructure, len(g.Samples), want)
	}
	return nil
}

// Bounds returns the 3-D region covered by the grid. An axisymmetric grid
// covers [-rmax, rmax] on both transverse axes.
func (g *Grid) Bounds() Box {
	var b Box
	if g.Kind == Axisymmetric2D {
		rmax := g.Extents[g.RadialAxis()].Max
		b.Min = Point{-rmax, -rmax, g.Extents[2].Min}
		b.Max = Point{rmax, rmax, g.Extents[2].Max}
		return b
	}
	for i, e := range g.Extents {
		b.Min[i] = e.Min
		b.Max[i] = e.Max
	}
	return b
}

// PointInBounds is the exact bound test used for query dispatch.
func (g *Grid) PointInBounds(p Point) bool {
	return g.Bounds().Contains(p)
}

// Clip clamps p to the grid bounds.
func (g *Grid) Clip(p Point) Point {
	b := g.Bounds()
	for i := 0; i < 3; i++ {
		p[i] = math.Max(b.Min[i], math.Min(b.Max[i], p[i]))
	}
	return p
}

// MapToIndex returns the nearest sample index for p. For axisymmetric grids
// the radial index is placed on the radial axis and the other transverse
// index is zero.
func (g *Grid) MapToIndex(p Point) ([3]uint32, bool) {
	var idx [3]uint32
	if !g.PointInBounds(p) {
		return idx, false
	}
	if g.Kind == Axisymmetric2D {
		ra := g.RadialAxis()
		r := math.Hypot(p[0], p[1])
		rr := g.Extents[ra]
		if r > rr.Max {
			return idx, false
		}
		idx[ra] = nearest(r, rr)
		idx[2] = nearest(p[2], g.Extents[2])
		return idx, true
	}
	for i := 0; i < 3; i++ {
		idx[i] = nearest(p[i], g.Extents[i])
	}
	return idx, true
}

func nearest(c float64, r Range) uint32 {
	if r.Count < 2 || r.Step <= 0 {
		return 0
	}
	f := math.Round((c - r.Min) / r.Step)
	if f < 0 {
		return 0
	}
	if f > float64(r.Count-1) {
		return r.Count - 1
	}
	return uint32(f)
}

// IndexAt returns the sample index of lattice point (ix, iy, iz), before
// scaling by the component count.
func (g *Grid) IndexAt(ix, iy, iz uint32) uint64 {
	nx := uint64(g.Extents[0].Count)
	ny := uint64(g.Extents[1].Count)
	return (uint64(iz)*ny+uint64(iy))*nx + uint64(ix)
}

// Coordinate returns the real-space position of lattice point i on axis.
func (g *Grid) Coordinate(axis int, i uint32) float64 {
	e := g.Extents[axis]
	return e.Min + float64(i)*e.Step
}

// Clone returns a deep copy of g.
func (g *Grid) Clone() *Grid {
	c := *g
	c.Samples = append([]float64(nil), g.Samples...)
	return &c
}
