package field

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ValueAt interpolates the field vector at p.
func (g *Grid) ValueAt(p Point) (r3.Vec, error) {
	switch g.Kind {
	case Full3D:
		return g.trilinear(p)
	case Axisymmetric2D:
		return g.revolved(p)
	}
	return r3.Vec{}, fmt.Errorf("%w: unknown kind %d", ErrBadStructure, uint32(g.Kind))
}

func (g *Grid) trilinear(p Point) (r3.Vec, error) {
	var (
		idx [3]uint32
		rc  [3]float64
	)
	for i := 0; i < 3; i++ {
		var err error
		idx[i], rc[i], err = g.Extents[i].locate(p[i])
		if err != nil {
			return r3.Vec{}, fmt.Errorf("axis %d of %q: %w", i, g.Name, err)
		}
	}

	nx := uint64(g.Extents[0].Count)
	plane := nx * uint64(g.Extents[1].Count)
	base := g.IndexAt(idx[0], idx[1], idx[2])
	corner := func(dx, dy, dz uint64) uint64 {
		return (base + dz*plane + dy*nx + dx) * 3
	}

	var out [3]float64
	for c := uint64(0); c < 3; c++ {
		v000 := g.Samples[corner(0, 0, 0)+c]
		v100 := g.Samples[corner(1, 0, 0)+c]
		v010 := g.Samples[corner(0, 1, 0)+c]
		v110 := g.Samples[corner(1, 1, 0)+c]
		v001 := g.Samples[corner(0, 0, 1)+c]
		v101 := g.Samples[corner(1, 0, 1)+c]
		v011 := g.Samples[corner(0, 1, 1)+c]
		v111 := g.Samples[corner(1, 1, 1)+c]

		// x first, then y, then z.
		c00 := lerp(v000, v100, rc[0])
		c10 := lerp(v010, v110, rc[0])
		c01 := lerp(v001, v101, rc[0])
		c11 := lerp(v011, v111, rc[0])
		c0 := lerp(c00, c10, rc[1])
		c1 := lerp(c01, c11, rc[1])
		out[c] = lerp(c0, c1, rc[2])
	}
	return r3.Vec{X: out[0], Y: out[1], Z: out[2]}, nil
}

func (g *Grid) revolved(p Point) (r3.Vec, error) {
	r := math.Hypot(p[0], p[1])
	var sin, cos float64
	if r > 0 {
		sin = p[1] / r
		cos = p[0] / r
	}

	ir, rr, err := g.Extents[g.RadialAxis()].locate(r)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("radius of %q: %w", g.Name, err)
	}
	iz, rz, err := g.Extents[2].locate(p[2])
	if err != nil {
		return r3.Vec{}, fmt.Errorf("axis 2 of %q: %w", g.Name, err)
	}

	stride := uint64(g.Stride)
	at := func(dr, dz uint64) uint64 {
		return ((uint64(iz)+dz)*stride + uint64(ir) + dr) * 2
	}
	var out [2]float64
	for c := uint64(0); c < 2; c++ {
		lo := lerp(g.Samples[at(0, 0)+c], g.Samples[at(1, 0)+c], rr)
		hi := lerp(g.Samples[at(0, 1)+c], g.Samples[at(1, 1)+c], rr)
		out[c] = lerp(lo, hi, rz)
	}
	return r3.Vec{X: out[0] * cos, Y: out[0] * sin, Z: out[1]}, nil
}

func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}
